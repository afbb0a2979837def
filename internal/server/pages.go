package server

import (
	"html/template"
	"net/http"
)

// The gateway serves lightweight shell pages; the dashboard frontend
// mounts onto them and talks to /api/auth from there.

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="id">
<head><meta charset="utf-8"><title>{{.Title}} - NusantaraEdu</title></head>
<body>
  <main>
    <h1>{{.Title}}</h1>
    {{if .Notice}}<p role="alert">{{.Notice}}</p>{{end}}
    {{if .User}}<p>Masuk sebagai <strong>{{.User.FullName}}</strong> ({{.User.Role}})</p>{{end}}
    {{if .School}}<p>{{.School.SchoolName}} &middot; NPSN {{.School.NPSN}}</p>{{end}}
  </main>
</body>
</html>
`))

type pageData struct {
	Title  string
	Notice string
	User   interface{}
	School interface{}
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, data)
}

// pageLanding serves /, /login and /register. The guard redirects here
// with a query param explaining why, which becomes the banner text.
func (s *Server) pageLanding(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "NusantaraEdu"}
	switch {
	case r.URL.Query().Get("reason") == "token_expired":
		data.Notice = "Sesi Anda telah berakhir. Silakan masuk kembali."
	case r.URL.Query().Get("error") == "authentication_required":
		data.Notice = "Silakan masuk untuk melanjutkan."
	}
	renderPage(w, http.StatusOK, data)
}

func (s *Server) pageStatic(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, http.StatusOK, pageData{Title: title})
	}
}

func (s *Server) pageUnauthorized(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusForbidden, pageData{
		Title:  "Akses Ditolak",
		Notice: "Anda tidak memiliki izin untuk membuka halaman tersebut.",
	})
}

func (s *Server) pageDashboard(w http.ResponseWriter, r *http.Request) {
	state := s.lookupState(r)
	renderPage(w, http.StatusOK, pageData{
		Title:  "Dashboard Kepala Sekolah",
		User:   state.User,
		School: state.School,
	})
}

func (s *Server) pageProfile(w http.ResponseWriter, r *http.Request) {
	state := s.lookupState(r)
	renderPage(w, http.StatusOK, pageData{
		Title: "Profil Saya",
		User:  state.User,
	})
}
