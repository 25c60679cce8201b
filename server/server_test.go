package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
	"github.com/stepseq/stepseq/storage"
)

func newTestServer(t *testing.T, opts Options) (*Server, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.Open(filepath.Join(t.TempDir(), "projects"))
	if err != nil {
		t.Fatal(err)
	}
	if opts.SampleDir == "" {
		opts.SampleDir = filepath.Join(t.TempDir(), "samples")
	}
	s := New(opts, store)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case <-s.Running():
	case err := <-done:
		cancel()
		t.Fatalf("server did not start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, s.Handler()
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	if err := json.Unmarshal(w.Body.Bytes(), &ret); err != nil {
		t.Fatalf("could not decode %q: %v", w.Body.String(), err)
	}
	return ret
}

func getState(t *testing.T, h http.Handler) stateResponse {
	t.Helper()
	w := request(t, h, http.MethodGet, "/api/v1/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("state: got status %d", w.Code)
	}
	return decode[stateResponse](t, w)
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, Options{})
	w := request(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestExecUndoRedo(t *testing.T) {
	_, h := newTestServer(t, Options{})
	w := request(t, h, http.MethodPost, "/api/v1/exec", `{"script":"toggle 1 0 0\nadd-channel\ndelete-channel 42"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("exec: got %d %s", w.Code, w.Body.String())
	}
	res := decode[execResponse](t, w)
	if res.Changed != 2 || !res.State.CanUndo || res.State.HistoryLength != 3 {
		t.Fatalf("unexpected exec result %+v", res)
	}
	if got := len(res.State.Project.Channels.Patterns[0].Channels); got != 5 {
		t.Fatalf("got %d channels, want 5", got)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/undo", ""); w.Code != http.StatusOK {
		t.Fatalf("undo: got %d", w.Code)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/redo", ""); w.Code != http.StatusOK {
		t.Fatalf("redo: got %d", w.Code)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/redo", ""); w.Code != http.StatusConflict {
		t.Fatalf("redo at the end: got %d, want %d", w.Code, http.StatusConflict)
	}
	st := getState(t, h)
	if !st.Project.Channels.Patterns[0].Channels[0].Grid[0] || st.HistoryPosition != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestExecErrors(t *testing.T) {
	_, h := newTestServer(t, Options{})
	if w := request(t, h, http.MethodPost, "/api/v1/exec", `{"script":"add-pattern\nbogus"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", w.Code, http.StatusBadRequest)
	}
	if w := request(t, h, http.MethodPost, "/api/v1/exec", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", w.Code, http.StatusBadRequest)
	}
	if st := getState(t, h); len(st.Project.Channels.Patterns) != 3 {
		t.Fatalf("the lines before the error were not applied")
	}
}

func TestProjects(t *testing.T) {
	_, h := newTestServer(t, Options{})
	request(t, h, http.MethodPost, "/api/v1/exec", `{"script":"toggle 1 1 3"}`)
	w := request(t, h, http.MethodPost, "/api/v1/projects", `{"name":"Demo"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", w.Code, w.Body.String())
	}
	info := decode[storage.Info](t, w)
	if info.Name != "Demo" || info.ID == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	list := decode[struct{ Projects []storage.Info }](t, request(t, h, http.MethodGet, "/api/v1/projects", ""))
	if len(list.Projects) != 1 || list.Projects[0].ID != info.ID {
		t.Fatalf("unexpected list %+v", list)
	}
	request(t, h, http.MethodPost, "/api/v1/new", "")
	if w := request(t, h, http.MethodGet, "/api/v1/projects/"+info.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("open: got %d", w.Code)
	}
	st := getState(t, h)
	if !st.Project.Channels.Patterns[0].Channels[1].Grid[3] || st.CanUndo {
		t.Fatalf("opened project is not the saved one")
	}
	if w := request(t, h, http.MethodPut, "/api/v1/projects/"+info.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("save: got %d", w.Code)
	}
	if w := request(t, h, http.MethodGet, "/api/v1/projects/not-an-id", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", w.Code)
	}
	if w := request(t, h, http.MethodDelete, "/api/v1/projects/"+info.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", w.Code)
	}
	if w := request(t, h, http.MethodGet, "/api/v1/projects/"+info.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("deleted project: got %d", w.Code)
	}
	request(t, h, http.MethodPost, "/api/v1/projects", "")
	deleted := decode[struct{ Deleted int }](t, request(t, h, http.MethodDelete, "/api/v1/projects", ""))
	if deleted.Deleted != 1 {
		t.Fatalf("delete all removed %d projects", deleted.Deleted)
	}
}

func TestExport(t *testing.T) {
	_, h := newTestServer(t, Options{})
	request(t, h, http.MethodPost, "/api/v1/exec", `{"script":"toggle 1 0 0\nplace 0 0 1"}`)
	for _, path := range []string{"/api/v1/export/pattern/1", "/api/v1/export/arrangement"} {
		w := request(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "audio/midi" || !bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")) {
			t.Fatalf("%s: got %d %q", path, w.Code, w.Header().Get("Content-Type"))
		}
	}
	if w := request(t, h, http.MethodGet, "/api/v1/export/pattern/9", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing pattern: got %d", w.Code)
	}
}

func TestTransport(t *testing.T) {
	s, h := newTestServer(t, Options{StepsPerBeat: 100})
	w := request(t, h, http.MethodPut, "/api/v1/transport", `{"bpm":1000,"timeSignature":{"numerator":3,"denominator":4}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set transport: got %d %s", w.Code, w.Body.String())
	}
	if res := decode[transportResponse](t, w); *res.Settings.BPM != stepseq.MaxBPM || res.Settings.TimeSignature.Numerator != 3 {
		t.Fatalf("unexpected settings %+v", res.Settings)
	}
	if w := request(t, h, http.MethodPut, "/api/v1/transport", `{"timeSignature":{"numerator":3,"denominator":5}}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid meter: got status %d", w.Code)
	}
	w = request(t, h, http.MethodPost, "/api/v1/transport/play", "")
	if res := decode[transportResponse](t, w); !res.Playing {
		t.Fatalf("not playing after play")
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.Cursor().Step() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Cursor().Step() == 0 {
		t.Fatalf("the play cursor did not move")
	}
	request(t, h, http.MethodPost, "/api/v1/undo", "")
	res := decode[transportResponse](t, request(t, h, http.MethodPost, "/api/v1/transport/stop", ""))
	if res.Playing || res.Step >= stepseq.DefaultWidth {
		t.Fatalf("unexpected transport %+v", res)
	}
	if st := getState(t, h); st.Project.Transport == nil || *st.Project.Transport.BPM != stepseq.MaxBPM || st.HistoryMax != editor.DefaultMaxHistory {
		t.Fatalf("transport missing from the project state: %+v", st.Project.Transport)
	}
}

func upload(t *testing.T, h http.Handler, channel, name string) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("RIFF0000WAVE"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+channel+"/sample", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: got %d %s", w.Code, w.Body.String())
	}
	return decode[struct{ Sample string }](t, w).Sample
}

func waitSample(t *testing.T, h http.Handler, index int, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := getState(t, h)
		if url := st.Project.Channels.Patterns[0].Channels[index].SampleURL; url != nil && *url == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sample %s was not loaded", want)
}

func TestSampleUploadAndRelease(t *testing.T) {
	_, h := newTestServer(t, Options{})
	first := upload(t, h, "1", "snare.wav")
	waitSample(t, h, 1, first)
	second := upload(t, h, "1", "snare2.wav")
	waitSample(t, h, 1, second)
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("a sample that can be undone back was removed: %v", err)
	}
	request(t, h, http.MethodPost, "/api/v1/new", "")
	for _, path := range []string{first, second} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("sample %s was not released: %v", path, err)
		}
	}
	if w := request(t, h, http.MethodPost, "/api/v1/channels/x/sample", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad channel: got %d", w.Code)
	}
}

func TestEvents(t *testing.T) {
	s, h := newTestServer(t, Options{})
	ts := httptest.NewServer(h)
	defer ts.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	for {
		s.mu.Lock()
		n := len(s.subscribers)
		s.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	request(t, h, http.MethodPost, "/api/v1/exec", `{"script":"rename-track 0 \"Drums\""}`)
	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			event = name
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok && event == "change" {
			var c changeEvent
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				t.Fatal(err)
			}
			if c.Scope != "playlist" || c.Playlist == nil || c.Playlist.Tracks[0].Name != "Drums" || !c.CanUndo {
				t.Fatalf("unexpected event %+v", c)
			}
			return
		}
	}
	t.Fatalf("no change event: %v", scanner.Err())
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.yml")
	m := editor.NewModel(nil, nil, 0)
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	_, h := newTestServer(t, Options{ProjectPath: path, Watch: true})
	m.Channels().Toggle(1, 2, 5).Do()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		// keep touching the file in case the first write raced the watcher
		if err := m.Save(path); err != nil {
			t.Fatal(err)
		}
		time.Sleep(200 * time.Millisecond)
		if st := getState(t, h); st.Project.Channels.Patterns[0].Channels[2].Grid[5] {
			return
		}
	}
	t.Fatalf("the project file was not reloaded")
}

func TestDoAfterStop(t *testing.T) {
	s := New(Options{SampleDir: filepath.Join(t.TempDir(), "samples")}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	<-s.Running()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if err := s.Do(context.Background(), func(*editor.Model) {}); err != ErrStopped {
		t.Fatalf("Do after stop: expected ErrStopped, got %v", err)
	}
	w := request(t, s.Handler(), http.MethodGet, "/api/v1/projects", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("projects without a store: got status %d", w.Code)
	}
}

func TestServeFailsOnBadProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.yml")
	if err := os.WriteFile(path, []byte("{not: [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Options{ProjectPath: path, SampleDir: filepath.Join(t.TempDir(), "samples")}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Serve(ctx, l); err == nil || ctx.Err() != nil {
		t.Fatalf("expected the open error before the timeout, got %v", err)
	}
	if conn, err := net.Dial("tcp", l.Addr().String()); err == nil {
		conn.Close()
		t.Fatalf("the listener is still accepting connections")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Options{SampleDir: filepath.Join(t.TempDir(), "samples")}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()
	<-s.Running()
	res, err := http.Get("http://" + l.Addr().String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: got status %d", res.StatusCode)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}
