package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/session"
)

const sessionCookie = "docqa_session"

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	State    string
	Summary  session.Summary
	Messages []messageView
	Notice   string
	Error    *errorView
}

type messageView struct {
	User bool
	Text string
	HTML template.HTML
}

type errorView struct {
	Kind    string
	Message string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.pageSession(w, r)
	if err != nil {
		s.renderPage(w, http.StatusInternalServerError, nil, "", err)
		return
	}
	s.renderPage(w, http.StatusOK, sess, "", nil)
}

func (s *Server) handlePageUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.pageSession(w, r)
	if err != nil {
		s.renderPage(w, http.StatusInternalServerError, nil, "", err)
		return
	}
	uploads, err := s.readUploads(w, r)
	if err == nil {
		_, err = sess.Process(r.Context(), uploads)
	}
	if err != nil {
		code, _ := statusOf(err)
		s.renderPage(w, code, sess, "", err)
		return
	}
	s.renderPage(w, http.StatusOK, sess, "Documents processed. Ask away.", nil)
}

func (s *Server) handlePageAsk(w http.ResponseWriter, r *http.Request) {
	sess, err := s.pageSession(w, r)
	if err != nil {
		s.renderPage(w, http.StatusInternalServerError, nil, "", err)
		return
	}
	if _, err := sess.Ask(r.Context(), r.PostFormValue("question")); err != nil {
		code, _ := statusOf(err)
		s.renderPage(w, code, sess, "", err)
		return
	}
	s.renderPage(w, http.StatusOK, sess, "", nil)
}

// pageSession returns the session named by the cookie, creating one when the
// cookie is missing or stale.
func (s *Server) pageSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, nil
		}
	}
	sess, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (s *Server) renderPage(w http.ResponseWriter, code int, sess *session.Session, notice string, failure error) {
	data := pageData{State: "idle", Notice: notice}
	if sess != nil {
		data.State = sess.State().String()
		data.Summary = sess.Summary()
		data.Messages = s.messageViews(sess.Messages())
	}
	if failure != nil {
		data.Error = &errorView{Kind: string(models.KindOf(failure)), Message: failure.Error()}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Rendering page failed")
		http.Error(w, "rendering page failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

// messageViews renders assistant answers from Markdown. Questions are shown
// as plain text.
func (s *Server) messageViews(msgs []models.Message) []messageView {
	out := make([]messageView, len(msgs))
	for i, m := range msgs {
		if m.Role == models.RoleUser {
			out[i] = messageView{User: true, Text: m.Content}
			continue
		}
		var buf bytes.Buffer
		if err := s.markdown.Convert([]byte(m.Content), &buf); err != nil {
			out[i] = messageView{Text: m.Content, HTML: template.HTML(template.HTMLEscapeString(m.Content))}
			continue
		}
		out[i] = messageView{Text: m.Content, HTML: template.HTML(buf.String())}
	}
	return out
}
