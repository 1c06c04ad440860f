// Package web serves the session console: a small page for typing to the
// robot and watching the conversation, plus JSON endpoints the page polls.
// Typed input lands in the event log exactly like a voice transcription,
// so the loop cannot tell the two apart.
package web

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/loop"
	"github.com/cozmogo/cozmogo/internal/transcript"
)

// Console is the web front-end for one session.
type Console struct {
	log  *events.Log
	tr   *transcript.Transcript
	loop *loop.Loop
}

// New creates a console over the session's log, transcript, and loop.
func New(log *events.Log, tr *transcript.Transcript, lp *loop.Loop) *Console {
	return &Console{log: log, tr: tr, loop: lp}
}

// Handler returns the console's HTTP routes.
func (c *Console) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", c.handleIndex)
	r.Post("/say", c.handleSay)
	r.Get("/history", c.handleHistory)
	return r
}

// Serve runs the console until the context ends, then shuts down with a
// short grace period.
func (c *Console) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web console listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<title>cozmogo</title>
<style>
body { font-family: monospace; max-width: 50em; margin: 2em auto; }
#history { white-space: pre-wrap; border: 1px solid #ccc; padding: 1em; min-height: 20em; }
#state { color: #666; }
form { margin-top: 1em; }
input[type=text] { width: 80%; }
</style>
</head>
<body>
<h1>cozmogo</h1>
<div id="state"></div>
<div id="history"></div>
<form id="say">
<input type="text" name="text" autofocus autocomplete="off">
<button>Say</button>
</form>
<script>
const historyDiv = document.getElementById("history");
const stateDiv = document.getElementById("state");
async function refresh() {
  const res = await fetch("history");
  const data = await res.json();
  historyDiv.textContent = data.entries.map(e => e.text).join("\n");
  stateDiv.textContent = "state: " + data.state;
}
document.getElementById("say").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const input = ev.target.elements.text;
  await fetch("say", {
    method: "POST",
    headers: {"content-type": "application/json"},
    body: JSON.stringify({text: input.value}),
  });
  input.value = "";
  refresh();
});
setInterval(refresh, 1000);
refresh();
</script>
</body>
</html>
`))

func (c *Console) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, nil); err != nil {
		logger.Warn("render console page: %v", err)
	}
}

type sayRequest struct {
	Text string `json:"text"`
}

func (c *Console) handleSay(w http.ResponseWriter, r *http.Request) {
	var text string
	switch {
	case strings.HasPrefix(r.Header.Get("Content-Type"), "application/json"):
		var req sayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		text = req.Text
	default:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}
		text = r.FormValue("text")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	c.log.Append(events.UserMessage, text)
	w.WriteHeader(http.StatusAccepted)
}

type historyEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type historyResponse struct {
	State   string         `json:"state"`
	Entries []historyEntry `json:"entries"`
}

func (c *Console) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := c.tr.Entries()
	resp := historyResponse{
		State:   c.loop.State().String(),
		Entries: make([]historyEntry, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = historyEntry{Role: e.Role.String(), Text: e.Text, At: e.At}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("encode history response: %v", err)
	}
}
