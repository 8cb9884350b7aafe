// bones-hostsim drives a bones-agent subprocess over its line protocol,
// standing in for the real host app. Streamed text is echoed to the
// terminal and every tool_use envelope is answered interactively, which
// makes it handy for poking at the agent without macOS around.
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"github.com/manifoldco/promptui"
)

type outboundMsg struct {
	Type        string         `json:"type"`
	Text        string         `json:"text"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Input       map[string]any `json:"input"`
	Silent      bool           `json:"silent"`
	Greeting    string         `json:"greeting"`
	Suggestions []struct {
		Label string `json:"label"`
		Value string `json:"value"`
	} `json:"suggestions"`
	Message string `json:"message"`
}

type host struct {
	in  io.Writer
	out *bufio.Scanner
}

func (h *host) send(msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(h.in, "%s\n", data)
	return err
}

// runTurn consumes agent output until the turn ends, answering tool calls
// along the way. Returns false when the agent closed its stdout.
func (h *host) runTurn() (bool, error) {
	for h.out.Scan() {
		var msg outboundMsg
		if err := json.Unmarshal(h.out.Bytes(), &msg); err != nil {
			log.Printf("unparseable line from agent: %s", h.out.Text())
			continue
		}
		switch msg.Type {
		case "text_delta":
			fmt.Print(msg.Text)
		case "streaming_end":
			fmt.Println()
		case "assistant_message", "streaming_start":
			// text already echoed via deltas
		case "status":
			fmt.Printf("-- %s\n", msg.Text)
		case "suggestions":
			fmt.Printf("-- %s\n", msg.Greeting)
			for _, s := range msg.Suggestions {
				fmt.Printf("   * %s\n", s.Label)
			}
			return true, nil
		case "tool_use":
			if err := h.answerTool(msg); err != nil {
				return false, err
			}
		case "error":
			fmt.Printf("!! %s\n", msg.Message)
			return true, nil
		case "done":
			return true, nil
		default:
			log.Printf("unhandled message type %q", msg.Type)
		}
	}
	return false, h.out.Err()
}

func (h *host) answerTool(msg outboundMsg) error {
	input, _ := json.Marshal(msg.Input)
	label := msg.Name
	if msg.Silent {
		label = msg.Name + " (silent)"
	}
	fmt.Printf(">> %s %s\n", label, input)

	p := promptui.Prompt{Label: "result (empty=ok, !text=error)"}
	line, err := p.Run()
	if err != nil {
		return err
	}
	result := map[string]any{"text": "ok"}
	if line != "" {
		if line[0] == '!' {
			result = map[string]any{"text": line[1:], "is_error": true}
		} else {
			result = map[string]any{"text": line}
		}
	}
	return h.send(map[string]any{"type": "tool_result", "result": result})
}

func main() {
	agentPath := flag.String("agent", "bones-agent", "path to the agent binary")
	pageURL := flag.String("url", "https://example.com/", "page_url for init")
	model := flag.String("model", "", "model override for init")
	screenshot := flag.String("screenshot", "", "PNG file to send as the init screenshot")
	flag.Parse()

	cmd := exec.Command(*agentPath)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Fatal(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	h := &host{in: stdin, out: scanner}

	initMsg := map[string]any{"type": "init", "page_url": *pageURL}
	if *model != "" {
		initMsg["model"] = *model
	}
	if *screenshot != "" {
		data, err := os.ReadFile(*screenshot)
		if err != nil {
			log.Fatal(err)
		}
		initMsg["screenshot_base64"] = base64.StdEncoding.EncodeToString(data)
		initMsg["screenshot_media_type"] = "image/png"
	}
	if err := h.send(initMsg); err != nil {
		log.Fatal(err)
	}
	// init produces a suggestions message and then a full turn
	if _, err := h.runTurn(); err != nil {
		log.Fatal(err)
	}
	if _, err := h.runTurn(); err != nil {
		log.Fatal(err)
	}

	p := promptui.Prompt{Label: ">"}
	for {
		line, err := p.Run()
		if err != nil {
			if err == io.EOF || err == promptui.ErrInterrupt {
				break
			}
			log.Fatal(err)
		}
		if line == `\q` {
			break
		}
		if err := h.send(map[string]any{"type": "user_message", "text": line}); err != nil {
			log.Fatal(err)
		}
		alive, err := h.runTurn()
		if err != nil {
			log.Fatal(err)
		}
		if !alive {
			break
		}
	}

	stdin.Close()
	cmd.Wait()
}
