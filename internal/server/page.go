package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"streamfi/internal/stream"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"success": isSuccess,
	"failure": isFailure,
}).ParseFS(templateFS, "templates/page.html"))

const defaultRate = "1000"

// Notices travel through the redirect as short codes, never as free text.
const (
	noticeNotConnected = "not-connected"
	noticeInFlight     = "in-flight"
)

var noticeMessages = map[string]string{
	noticeNotConnected: stream.ErrNotConnected.Message,
	noticeInFlight:     stream.ErrSubmissionInFlight.Message,
}

type pageData struct {
	Session   stream.Snapshot
	Account   string
	Recipient string
	Rate      string
	RateAlgos string
	Notice    string
	// ReadOnly hides the forms when state changes require a signature.
	ReadOnly bool
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	data := pageData{
		Session:   s.ctrl.Snapshot(),
		Recipient: q.Get("recipient"),
		Rate:      q.Get("rate"),
		Notice:    noticeMessages[q.Get("notice")],
		ReadOnly:  s.auth.Enabled(),
	}
	data.Account = shortAddress(data.Session.Account)
	if data.Rate == "" {
		data.Rate = defaultRate
	}
	if rate, err := stream.ParseRate(data.Rate); err == nil {
		data.RateAlgos = stream.RateInAlgos(rate)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

func (s *Server) handlePageConnect(w http.ResponseWriter, r *http.Request) {
	_ = s.connect(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePageDisconnect(w http.ResponseWriter, r *http.Request) {
	s.disconnect(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePageCreateStream(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	req := stream.StreamRequest{
		Recipient: r.PostFormValue("recipient"),
		Rate:      r.PostFormValue("rate"),
	}

	q := url.Values{}
	q.Set("recipient", req.Recipient)
	q.Set("rate", req.Rate)

	_, err := s.createStream(r.Context(), req)
	switch {
	case errors.Is(err, stream.ErrNotConnected):
		q.Set("notice", noticeNotConnected)
	case errors.Is(err, stream.ErrSubmissionInFlight):
		q.Set("notice", noticeInFlight)
	}

	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

// shortAddress renders the first and last eight characters of an address.
func shortAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-8:]
}

func isSuccess(status string) bool {
	return strings.HasPrefix(status, stream.SuccessIndicator)
}

func isFailure(status string) bool {
	return strings.HasPrefix(status, stream.FailureIndicator)
}
