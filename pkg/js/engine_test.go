package js

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"waterfall/pkg/html"
	"waterfall/pkg/surface"
	"waterfall/pkg/waterfall"
)

func parseHTML(t *testing.T, s string) *html.Document {
	t.Helper()
	doc, err := html.Parse(s)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return doc
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestGetElementById(t *testing.T) {
	doc := parseHTML(t, `<div id="foo">hello</div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var el = document.getElementById("foo");
		if (el === null) throw new Error("element not found");
		if (el.id !== "foo") throw new Error("wrong id: " + el.id);
		if (el.tagName !== "DIV") throw new Error("wrong tagName: " + el.tagName);
		if (document.getElementById("foo") !== el) throw new Error("proxy identity lost");
		if (document.getElementById("nonexistent") !== null) throw new Error("expected null");
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}
}

func TestGetElementsByTagAndClass(t *testing.T) {
	doc := parseHTML(t, `<p>one</p><p class="a b">two</p><div class="a">three</div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var ps = document.getElementsByTagName("P");
		if (ps.length !== 2) throw new Error("expected 2 p tags, got: " + ps.length);
		var els = document.getElementsByClassName("a");
		if (els.length !== 2) throw new Error("expected 2 elements with class a, got: " + els.length);
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}
}

func TestSetTextContent(t *testing.T) {
	doc := parseHTML(t, `<p id="target">original</p>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		document.getElementById("target").textContent = "changed";
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}

	node := doc.Root.ElementByID("target")
	if node == nil {
		t.Fatal("target not found")
	}
	if got := node.TextContent(); got != "changed" {
		t.Errorf("textContent = %q, want %q", got, "changed")
	}
}

func TestSetInnerHTML(t *testing.T) {
	doc := parseHTML(t, `<div id="card"><span>old</span></div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var card = document.getElementById("card");
		card.innerHTML = '<img lazy-src="a.png"><p>caption</p>';
		if (card.children.length !== 2) throw new Error("children: " + card.children.length);
		if (card.children[0].getAttribute("lazy-src") !== "a.png") throw new Error("lazy-src lost");
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}
	if got := doc.Root.ElementByID("card").TextContent(); got != "caption" {
		t.Errorf("textContent = %q, want caption", got)
	}
}

func TestSetStyle(t *testing.T) {
	doc := parseHTML(t, `<div id="box" style="color: red;">box</div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var el = document.getElementById("box");
		el.style.color = "blue";
		el.style.display = "none";
		el.style.backgroundColor = "yellow";
		el.style.fontSize = "20px";
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}

	style := doc.Root.ElementByID("box").Attributes["style"]
	for prop, val := range map[string]string{
		"color":            "blue",
		"display":          "none",
		"background-color": "yellow",
		"font-size":        "20px",
	} {
		if !containsDecl(style, prop, val) {
			t.Errorf("style = %q, want %s: %s", style, prop, val)
		}
	}
}

func TestAttributes(t *testing.T) {
	doc := parseHTML(t, `<div id="target" data-x="hello" class="old">text</div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var el = document.getElementById("target");
		if (el.getAttribute("data-x") !== "hello") throw new Error("getAttribute: " + el.getAttribute("data-x"));
		el.setAttribute("data-value", "42");
		el.className = "new-class";
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}

	node := doc.Root.ElementByID("target")
	if val, ok := node.Attributes["data-value"]; !ok || val != "42" {
		t.Errorf("data-value = %q, want %q", val, "42")
	}
	if node.Attributes["class"] != "new-class" {
		t.Errorf("class = %q, want %q", node.Attributes["class"], "new-class")
	}
}

func TestChildren(t *testing.T) {
	doc := parseHTML(t, `<div id="parent"><span>a</span><span>b</span></div>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `
		var parent = document.getElementById("parent");
		var kids = parent.children;
		if (kids.length !== 2) throw new Error("expected 2 children, got: " + kids.length);
		if (kids[0].tagName !== "SPAN") throw new Error("expected SPAN, got: " + kids[0].tagName);
		var em = document.createElement("em");
		parent.appendChild(em);
		if (parent.childElementCount !== 3) throw new Error("append failed");
		if (em.parentNode !== parent) throw new Error("parentNode mismatch");
	`)
	if err := engine.Execute(doc); err != nil {
		t.Fatal(err)
	}
}

func TestScriptError(t *testing.T) {
	doc := parseHTML(t, `<p>text</p>`)
	engine := New(WithLogger(quietLogger()))
	doc.Scripts = append(doc.Scripts, `throw new Error("test error");`)
	if err := engine.Execute(doc); err == nil {
		t.Fatal("expected error from script")
	}
}

func TestConsoleLogs(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	engine := New(WithLogger(logrus.NewEntry(l)))
	if _, err := engine.Run(`console.log("cards", 3); console.warn("slow")`); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "cards 3") {
		t.Errorf("console.log missing from %q", out)
	}
	if !strings.Contains(out, "level=warning") {
		t.Errorf("console.warn not logged at warning level: %q", out)
	}
}

func TestCamelToKebab(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"color", "color"},
		{"backgroundColor", "background-color"},
		{"fontSize", "font-size"},
		{"borderTopWidth", "border-top-width"},
		{"cssFloat", "float"},
	}
	for _, tt := range tests {
		if got := camelToKebab(tt.input); got != tt.want {
			t.Errorf("camelToKebab(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// attach wires a script engine to a waterfall engine over a fresh page.
func attach(t *testing.T, doc *html.Document) (*Engine, *waterfall.Engine, *surface.Page) {
	t.Helper()
	return attachWith(t, doc, waterfall.Options{ColumnCount: 2, GutterWidth: 10})
}

func attachWith(t *testing.T, doc *html.Document, opts waterfall.Options) (*Engine, *waterfall.Engine, *surface.Page) {
	t.Helper()
	p := surface.New(doc, waterfall.Viewport{Width: 600, Height: 400})
	script := New(WithLogger(quietLogger()))
	w := waterfall.New(p, opts,
		waterfall.WithLogger(quietLogger()),
		waterfall.WithListener(script))
	t.Cleanup(w.Close)
	script.Attach(w)
	if err := script.Execute(doc); err != nil {
		t.Fatal(err)
	}
	return script, w, p
}

func TestWaterfallLoadMoreAppendsData(t *testing.T) {
	doc := parseHTML(t, `<body><script>
		var page = 0;
		waterfall.on("loadMore", function () {
			page++;
			waterfall.appendData([{id: "p" + page + "-a"}, {id: "p" + page + "-b"}]);
		});
	</script></body>`)
	script, w, _ := attach(t, doc)

	script.LoadMore()
	script.LoadMore()

	data := w.Data()
	if len(data) != 4 {
		t.Fatalf("expected 4 items, got %d", len(data))
	}
	if data[3]["id"] != "p2-b" {
		t.Errorf("last item = %v, want p2-b", data[3]["id"])
	}
	v, err := script.Run(`waterfall.data().length`)
	if err != nil {
		t.Fatal(err)
	}
	if v.ToInteger() != 4 {
		t.Errorf("waterfall.data().length = %d", v.ToInteger())
	}
}

func TestWaterfallFinishAfterMount(t *testing.T) {
	doc := parseHTML(t, `<body><script>
		var finished = 0;
		waterfall.on("finish", function () { finished++; });
	</script></body>`)
	script, w, p := attach(t, doc)
	for _, h := range []float64{40, 60, 20} {
		card := html.NewElement("div")
		card.SetStyle("height", html.FormatPx(h))
		p.Slot().AddChild(card)
	}

	w.Mount()

	v, err := script.Run(`finished + ":" + waterfall.cursor()`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "1:3" {
		t.Errorf("finished:cursor = %s, want 1:3", v.String())
	}
}

func TestWaterfallScrollEvent(t *testing.T) {
	doc := parseHTML(t, `<body><script>
		var last = null;
		waterfall.on("scroll", function (ev) { last = ev; });
	</script></body>`)
	script, _, _ := attach(t, doc)

	script.Scroll(waterfall.ScrollEvent{ScrollTop: 120, ScrollHeight: 900, ClientHeight: 400, Diff: 20, Time: time.UnixMilli(5000)})

	v, err := script.Run(`last.scrollTop + "/" + last.scrollHeight + "/" + last.diff + "/" + last.time`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "120/900/20/5000" {
		t.Errorf("scroll event = %s", v.String())
	}
}

func TestWaterfallUnknownEvent(t *testing.T) {
	doc := parseHTML(t, `<body></body>`)
	script, _, _ := attach(t, doc)
	_, err := script.Run(`waterfall.on("bogus", function () {})`)
	if err == nil || !strings.Contains(err.Error(), "TypeError") {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestHandlerErrorDoesNotStopOthers(t *testing.T) {
	doc := parseHTML(t, `<body><script>
		var calls = 0;
		waterfall.on("loadMore", function () { throw new Error("boom"); });
		waterfall.on("loadMore", function () { calls++; });
	</script></body>`)
	script, _, _ := attach(t, doc)
	script.LoadMore()
	v, err := script.Run(`calls`)
	if err != nil {
		t.Fatal(err)
	}
	if v.ToInteger() != 1 {
		t.Errorf("calls = %d, want 1", v.ToInteger())
	}
}

// containsDecl checks if an inline style string contains a particular property:value.
func containsDecl(style, prop, val string) bool {
	return html.ParseInlineStyle(style)[prop] == val
}
