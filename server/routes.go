package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
	"github.com/stepseq/stepseq/editor/gomidi"
	"github.com/stepseq/stepseq/script"
	"github.com/stepseq/stepseq/storage"
	"github.com/stepseq/stepseq/version"
)

type (
	stateResponse struct {
		Project          stepseq.Project `json:"project"`
		CanUndo          bool            `json:"canUndo"`
		CanRedo          bool            `json:"canRedo"`
		HistoryLength    int             `json:"historyLength"`
		HistoryPosition  int             `json:"historyPosition"`
		HistoryMax       int             `json:"historyMax"`
		Orphans          int             `json:"orphans"`
		ChangedSinceSave bool            `json:"changedSinceSave"`
	}

	execRequest struct {
		Script string `json:"script" binding:"required"`
	}

	execResponse struct {
		Changed int           `json:"changed"`
		State   stateResponse `json:"state"`
	}

	changeEvent struct {
		Scope     string                 `json:"scope"`
		CanUndo   bool                   `json:"canUndo"`
		CanRedo   bool                   `json:"canRedo"`
		Channels  *stepseq.ChannelData   `json:"channels,omitempty"`
		Playlist  *stepseq.PlaylistData  `json:"playlist,omitempty"`
		Transport *stepseq.TransportData `json:"transport,omitempty"`
	}

	transportResponse struct {
		Playing  bool                  `json:"playing"`
		Step     int                   `json:"step"`
		Settings stepseq.TransportData `json:"settings"`
	}

	projectRequest struct {
		Name string `json:"name"`
	}
)

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), corsMiddleware())
	r.GET("/health", s.health)
	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", s.getState)
		v1.POST("/exec", s.exec)
		v1.POST("/undo", s.action(func(m *editor.Model) editor.Action { return m.Undo() }))
		v1.POST("/redo", s.action(func(m *editor.Model) editor.Action { return m.Redo() }))
		v1.POST("/new", s.newProject)
		v1.POST("/save", s.saveFile)
		v1.GET("/events", s.events)
		v1.POST("/channels/:channel/sample", s.uploadSample)
		v1.GET("/export/pattern/:pattern", s.exportPattern)
		v1.GET("/export/arrangement", s.exportArrangement)
		v1.GET("/transport", s.transport)
		v1.PUT("/transport", s.setTransport)
		v1.POST("/transport/play", s.play)
		v1.POST("/transport/stop", s.stop)
		v1.GET("/commands", listCommands)

		projects := v1.Group("/projects", s.requireStore)
		projects.GET("", s.listProjects)
		projects.POST("", s.createProject)
		projects.DELETE("", s.deleteAllProjects)
		projects.GET("/:id", s.openProject)
		projects.PUT("/:id", s.saveProject)
		projects.DELETE("/:id", s.deleteProject)
	}
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "stepseq", "version": version.VersionOrHash})
}

func listCommands(c *gin.Context) {
	var usage []string
	for _, name := range script.Commands() {
		usage = append(usage, script.Usage(name))
	}
	c.JSON(http.StatusOK, gin.H{"commands": usage})
}

func state(m *editor.Model) stateResponse {
	return stateResponse{
		Project:          m.Project(),
		CanUndo:          m.CanUndo(),
		CanRedo:          m.CanRedo(),
		HistoryLength:    m.HistoryLen(),
		HistoryPosition:  m.HistoryPos(),
		HistoryMax:       m.HistoryMax(),
		Orphans:          m.Playlist().Orphans(),
		ChangedSinceSave: m.ChangedSinceSave(),
	}
}

// do runs f in the model loop, answering 503 if the loop is gone.
func (s *Server) do(c *gin.Context, f func(*editor.Model)) bool {
	if err := s.Do(c.Request.Context(), f); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) getState(c *gin.Context) {
	var ret stateResponse
	if s.do(c, func(m *editor.Model) { ret = state(m) }) {
		c.JSON(http.StatusOK, ret)
	}
}

func (s *Server) exec(c *gin.Context) {
	var req execRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var ret execResponse
	var err error
	if !s.do(c, func(m *editor.Model) {
		ret.Changed, err = script.Run(m, strings.NewReader(req.Script))
		ret.State = state(m)
	}) {
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "changed": ret.Changed, "state": ret.State})
		return
	}
	c.JSON(http.StatusOK, ret)
}

func (s *Server) action(get func(*editor.Model) editor.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var done bool
		var ret stateResponse
		if !s.do(c, func(m *editor.Model) {
			done = get(m).Do()
			ret = state(m)
		}) {
			return
		}
		if !done {
			c.JSON(http.StatusConflict, gin.H{"error": "nothing to do", "state": ret})
			return
		}
		c.JSON(http.StatusOK, ret)
	}
}

func (s *Server) newProject(c *gin.Context) {
	var ret stateResponse
	if s.do(c, func(m *editor.Model) {
		m.New()
		ret = state(m)
	}) {
		c.JSON(http.StatusOK, ret)
	}
}

func (s *Server) saveFile(c *gin.Context) {
	var err error
	if !s.do(c, func(m *editor.Model) { err = s.save(m) }) {
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": s.opts.ProjectPath})
}

// events streams the changes of the model as server sent events.
func (s *Server) events(c *gin.Context) {
	changes, cancel := s.Subscribe()
	defer cancel()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ch := <-changes:
			c.SSEvent("change", newChangeEvent(ch))
			return true
		}
	})
}

func newChangeEvent(c editor.Change) changeEvent {
	ret := changeEvent{Scope: c.Scope.String(), CanUndo: c.CanUndo, CanRedo: c.CanRedo}
	switch c.Scope {
	case editor.ChannelScope:
		d := c.Snapshot.Channels.Data()
		ret.Channels = &d
	case editor.PlaylistScope:
		d := c.Snapshot.Playlist.Data()
		ret.Playlist = &d
	case editor.TransportScope:
		d := c.Transport.Data()
		ret.Transport = &d
	}
	return ret
}

// uploadSample stores the uploaded file and loads it in the background; the
// load arrives as its own change once the file is ready.
func (s *Server) uploadSample(c *gin.Context) {
	channel, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	var dir string
	if !s.do(c, func(*editor.Model) { dir = s.opts.SampleDir }) {
		return
	}
	f, err := os.CreateTemp(dir, "sample-*"+filepath.Ext(file.Filename))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	path := f.Name()
	f.Close()
	if err := c.SaveUploadedFile(file, path); err != nil {
		os.Remove(path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.broker.LoadSampleFile(stepseq.ChannelID(channel), path)
	c.JSON(http.StatusAccepted, gin.H{"channel": channel, "sample": path})
}

func (s *Server) exportPattern(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("pattern"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern"})
		return
	}
	s.exportMIDI(c, fmt.Sprintf("pattern-%d.mid", id), func(e gomidi.Exporter, w io.Writer, snap stepseq.Snapshot) error {
		return e.ExportPattern(w, snap.Channels, stepseq.PatternID(id))
	})
}

func (s *Server) exportArrangement(c *gin.Context) {
	s.exportMIDI(c, "arrangement.mid", func(e gomidi.Exporter, w io.Writer, snap stepseq.Snapshot) error {
		return e.ExportArrangement(w, snap)
	})
}

func (s *Server) exportMIDI(c *gin.Context, name string, export func(gomidi.Exporter, io.Writer, stepseq.Snapshot) error) {
	var snap stepseq.Snapshot
	var tr stepseq.Transport
	if !s.do(c, func(m *editor.Model) { snap, tr = m.Snapshot(), m.Transport().State() }) {
		return
	}
	e := gomidi.DefaultExporter().WithTransport(tr)
	e.StepsPerBeat = s.opts.StepsPerBeat
	var buf bytes.Buffer
	if err := export(e, &buf, snap); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "audio/midi", buf.Bytes())
}

func (s *Server) transport(c *gin.Context) {
	var tr stepseq.Transport
	if s.do(c, func(m *editor.Model) { tr = m.Transport().State() }) {
		c.JSON(http.StatusOK, transportResponse{Playing: s.cursor.Playing(), Step: s.cursor.Step(), Settings: tr.Data()})
	}
}

// setTransport changes the transport settings present in the request; the
// tempo is clamped and an invalid meter is refused.
func (s *Server) setTransport(c *gin.Context) {
	var req stepseq.TransportData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ts := req.TimeSignature; ts != nil && !ts.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid time signature %d/%d", ts.Numerator, ts.Denominator)})
		return
	}
	if !s.do(c, func(m *editor.Model) {
		tr := m.Transport()
		if req.BPM != nil {
			tr.SetBPM(*req.BPM)
		}
		if ts := req.TimeSignature; ts != nil {
			tr.SetTimeSignature(ts.Numerator, ts.Denominator)
		}
		if req.LoopEnabled != nil {
			tr.Loop().SetValue(*req.LoopEnabled)
		}
		if req.MetronomeEnabled != nil {
			tr.Metronome().SetValue(*req.MetronomeEnabled)
		}
	}) {
		return
	}
	s.transport(c)
}

func (s *Server) play(c *gin.Context) {
	s.cursor.Start()
	s.transport(c)
}

func (s *Server) stop(c *gin.Context) {
	s.cursor.Stop()
	s.transport(c)
}

func (s *Server) requireStore(c *gin.Context) {
	if s.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no project store"})
		return
	}
	c.Next()
}

func storeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidID):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listProjects(c *gin.Context) {
	infos, err := s.store.List(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	if infos == nil {
		infos = []storage.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": infos})
}

// createProject saves the current project as a new record.
func (s *Server) createProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var p stepseq.Project
	if !s.do(c, func(m *editor.Model) { p = m.Project() }) {
		return
	}
	r, err := s.store.Create(c.Request.Context(), req.Name, p)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r.Info)
}

// openProject loads a saved project into the editor, discarding the history.
func (s *Server) openProject(c *gin.Context) {
	r, err := s.store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}
	var ret stateResponse
	if s.do(c, func(m *editor.Model) {
		m.LoadProject(r.Project)
		ret = state(m)
	}) {
		c.JSON(http.StatusOK, gin.H{"info": r.Info, "state": ret})
	}
}

func (s *Server) saveProject(c *gin.Context) {
	var p stepseq.Project
	if !s.do(c, func(m *editor.Model) { p = m.Project() }) {
		return
	}
	r, err := s.store.Save(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Info)
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteAllProjects(c *gin.Context) {
	n, err := s.store.DeleteAll(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
