package tools

// Host-executed tool declarations. The descriptions and input shapes
// are the model-facing contract; execution happens in the host
// process, which receives each call as a tool_use envelope on the line
// protocol.

type takeScreenshotRequest struct {
	Target  string `json:"target,omitempty" jsonschema:"enum=app,enum=overlay,enum=both" jsonschema_description:"What to capture"`
	Labeled bool   `json:"labeled,omitempty" jsonschema_description:"Annotate with 2-letter element codes"`
}

type clickCodeRequest struct {
	Code string `json:"code" jsonschema_description:"2-letter element code (e.g. 'AA', 'BF')"`
}

type typeIntoCodeRequest struct {
	Code string `json:"code" jsonschema_description:"2-letter element code for the input field"`
	Text string `json:"text" jsonschema_description:"Text to type"`
}

type clickRequest struct {
	X int `json:"x" jsonschema_description:"X coordinate in image pixels"`
	Y int `json:"y" jsonschema_description:"Y coordinate in image pixels"`
}

type typeTextRequest struct {
	Text string `json:"text" jsonschema_description:"Text to type"`
}

type scrollRequest struct {
	X         int    `json:"x" jsonschema_description:"X coordinate in image pixels"`
	Y         int    `json:"y" jsonschema_description:"Y coordinate in image pixels"`
	Direction string `json:"direction" jsonschema:"enum=up,enum=down" jsonschema_description:"Scroll direction"`
	Amount    int    `json:"amount,omitempty" jsonschema_description:"Number of scroll lines (default 3)"`
}

type keyComboRequest struct {
	Keys []string `json:"keys" jsonschema_description:"Array of key names"`
}

type emptyRequest struct{}

type findElementsRequest struct {
	Query string `json:"query" jsonschema_description:"Search keyword (case-insensitive partial match)"`
}

type createOverlayRequest struct {
	HTML     string `json:"html" jsonschema_description:"HTML content"`
	Width    int    `json:"width,omitempty" jsonschema_description:"Width in pixels (default 400)"`
	Height   int    `json:"height,omitempty" jsonschema_description:"Height in pixels (default 300)"`
	Position string `json:"position,omitempty" jsonschema:"enum=top-left,enum=top-right,enum=center,enum=bottom-left" jsonschema_description:"Overlay position"`
}

type updateOverlayRequest struct {
	HTML       string `json:"html,omitempty" jsonschema_description:"New HTML content (replaces existing)"`
	JavaScript string `json:"javascript,omitempty" jsonschema_description:"JavaScript to execute in overlay"`
}

type showWidgetRequest struct {
	WidgetID string         `json:"widget_id" jsonschema_description:"Unique ID for this widget"`
	Kind     string         `json:"type" jsonschema:"enum=color_swatch,enum=json_viewer,enum=code_snippet,enum=custom_html" jsonschema_description:"Widget type"`
	X        int            `json:"x" jsonschema_description:"X position in image pixels (2x retina)"`
	Y        int            `json:"y" jsonschema_description:"Y position in image pixels (2x retina)"`
	Title    string         `json:"title" jsonschema_description:"Title for the widget window"`
	Config   map[string]any `json:"config" jsonschema_description:"Widget config. color_swatch: {color: '#hex'}. json_viewer: {json: '{...}'}. code_snippet: {code: '...', language: 'swift'}. custom_html: {html: '<div>...</div>', width: 300, height: 200}."`
}

type dismissWidgetRequest struct {
	WidgetID string `json:"widget_id" jsonschema_description:"ID of widget to dismiss, or 'all'"`
}

type runJavascriptRequest struct {
	JavaScript string `json:"javascript" jsonschema_description:"JavaScript code to execute in the browser tab"`
}

type visualizeRequest struct {
	HTML  string `json:"html" jsonschema_description:"Complete HTML content to render"`
	Title string `json:"title,omitempty" jsonschema_description:"Label shown above the visualization"`
}

type launchSiteAppRequest struct {
	AppID string `json:"app_id" jsonschema_description:"ID of the site app to launch"`
	URL   string `json:"url,omitempty" jsonschema_description:"Current page URL to pass to the app"`
}

type saveOverlayRequest struct {
	ID          string `json:"id" jsonschema_description:"Slug ID for the overlay (e.g. 'game-spinner', 'pr-dashboard')"`
	Name        string `json:"name" jsonschema_description:"Human-readable name (e.g. 'Game Spinner')"`
	Description string `json:"description" jsonschema_description:"Brief description of what the overlay does"`
	HTML        string `json:"html" jsonschema_description:"Full HTML content for the overlay"`
	Width       int    `json:"width,omitempty" jsonschema_description:"Width in pixels (default 400)"`
	Height      int    `json:"height,omitempty" jsonschema_description:"Height in pixels (default 300)"`
	Position    string `json:"position,omitempty" jsonschema:"enum=top-left,enum=top-right,enum=center,enum=bottom-left" jsonschema_description:"Overlay position on screen"`
}

type overlayIDRequest struct {
	ID string `json:"id" jsonschema_description:"ID of the saved overlay"`
}

// NativeDefinitions is the catalog of host-executed tools.
func NativeDefinitions() []Definition {
	return []Definition{
		Remote[takeScreenshotRequest]("take_screenshot",
			"Take a screenshot. target: 'app' (default), 'overlay', or 'both'. "+
				"Set labeled=true to annotate with 2-letter element codes."),
		Remote[clickCodeRequest]("click_code",
			"Click a UI element by its 2-letter Homerow code (e.g. 'AA', 'BF'). "+
				"ALWAYS prefer this over raw click. Use take_screenshot(labeled=true) or "+
				"get_elements to see available codes."),
		Remote[typeIntoCodeRequest]("type_into_code",
			"Click an input field by its 2-letter code, then type text into it."),
		Remote[clickRequest]("click",
			"Click at raw image-pixel coordinates. ONLY use as a fallback when "+
				"click_code is not possible (element has no code). Coordinates are in "+
				"the 2x retina screenshot space."),
		Remote[typeTextRequest]("type_text",
			"Type text at the current cursor position."),
		Remote[scrollRequest]("scroll",
			"Scroll at a position."),
		Remote[keyComboRequest]("key_combo",
			"Press a keyboard shortcut. Pass modifier keys (cmd, ctrl, shift, alt/option) "+
				"plus one main key. Examples: ['cmd','c'], ['cmd','shift','f'], ['return']."),
		Remote[emptyRequest]("get_elements",
			"Get the full list of labeled elements with their 2-letter codes, roles, "+
				"labels, and screen frames."),
		Remote[findElementsRequest]("find_elements",
			"Search the accessibility tree for elements matching a keyword. "+
				"Returns matching elements with roles, labels, and frames."),
		Remote[createOverlayRequest]("create_overlay",
			"Create a dynamic HTML/CSS/JS overlay window floating above the target app. "+
				"The overlay has access to window.bones.* bridge APIs."),
		Remote[updateOverlayRequest]("update_overlay",
			"Update an existing overlay with new HTML or execute JavaScript."),
		Remote[emptyRequest]("destroy_overlay",
			"Remove the overlay window."),
		Remote[emptyRequest]("get_overlay_logs",
			"Get console logs and errors from the overlay window. "+
				"Shows console.log, console.warn, console.error output and uncaught exceptions. "+
				"Use this to debug overlay issues."),
		Remote[showWidgetRequest]("show_widget",
			"Show a floating widget panel at a position on the target window. "+
				"Use to display contextual information like color swatches, JSON viewers, "+
				"code snippets, or custom HTML widgets."),
		Remote[dismissWidgetRequest]("dismiss_widget",
			"Dismiss a floating widget panel. Use widget_id='all' to dismiss all widgets."),
		Remote[emptyRequest]("read_editor_content",
			"Read the full text content from the focused text area or code editor in the target window. "+
				"Returns the complete file/document text, not just what's visible on screen."),
		Remote[runJavascriptRequest]("run_javascript",
			"Execute JavaScript in the target browser's active tab and return the result. "+
				"Works with Safari, Chrome, Arc, Brave, Edge. Use this to read page HTML "+
				"(document.documentElement.outerHTML), get URLs (document.querySelectorAll('a')), "+
				"interact with the DOM, or extract data from web pages. "+
				"The JS expression should return a string value."),
		Remote[visualizeRequest]("visualize",
			"Render an interactive HTML visualization in the chat sidebar. "+
				"Use to show visual representations of UI components, mockups, diagrams, etc."),
		Remote[launchSiteAppRequest]("launch_site_app",
			"Launch a pre-built site-specific app for the current webpage. "+
				"These are rich interactive experiences built for specific websites. "+
				"Pass the app_id and optionally the current page URL."),
		Remote[saveOverlayRequest]("save_overlay",
			"Write overlay HTML to disk and display it. This is the primary way to create "+
				"and iterate on persistent overlays. The HTML is written to "+
				"~/.bones/apps/{domain}/{id}/overlay.html and immediately shown. "+
				"Call again with the same id to update — edits go straight to disk and reload."),
		Remote[overlayIDRequest]("read_overlay_source",
			"Read the HTML source of a saved overlay from disk. "+
				"Use this to see the current state before making edits, "+
				"then call save_overlay with the modified HTML."),
		Remote[emptyRequest]("list_saved_overlays",
			"List all saved overlays for the current app/site. "+
				"Returns overlay IDs, names, and descriptions."),
		Remote[overlayIDRequest]("load_overlay",
			"Load a previously saved overlay from disk and display it. "+
				"Use this to restore an overlay from a previous session."),
	}
}
