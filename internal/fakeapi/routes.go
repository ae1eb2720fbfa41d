package fakeapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Get("/ws", s.serveWS)
		r.Group(func(r chi.Router) {
			r.Use(s.authorize)
			r.Get("/contacts", s.listContacts)
			r.Post("/contacts", s.createContact)
			r.Put("/contacts/{id}", s.updateContact)
			r.Delete("/contacts/{id}", s.deleteContact)
		})
	})
	return r
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RequireAuth {
			token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !s.tokenValid(token) {
				s.write(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized."})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) write(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.codec.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := s.codec.NewDecoder(r.Body).Decode(dst); err != nil {
		s.write(w, http.StatusBadRequest, map[string]string{"error": "Malformed request body."})
		return false
	}
	return true
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		s.write(w, http.StatusBadRequest, map[string][]string{"errorMessages": {"Username is required."}})
		return
	}
	if !s.checkPassword(req.Username, req.Password) {
		s.write(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password."})
		return
	}
	s.write(w, http.StatusOK, loginResponse{
		Token: s.issueToken(req.Username),
		User:  loginUser{Username: req.Username},
	})
}

func (s *Server) listContacts(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	list := s.list()
	s.mu.RUnlock()
	if s.Envelope != "" {
		s.write(w, http.StatusOK, map[string]any{s.Envelope: list})
		return
	}
	s.write(w, http.StatusOK, list)
}

func contactID(r *http.Request) models.ID {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return models.ID(id)
	}
	return models.ID(raw)
}

func validateInput(in models.ContactInput) []string {
	if strings.TrimSpace(in.Name) == "" {
		return []string{"Name is required."}
	}
	return nil
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactInput
	if !s.decode(w, r, &in) {
		return
	}
	if msgs := validateInput(in); msgs != nil {
		s.write(w, http.StatusBadRequest, map[string][]string{"errorMessages": msgs})
		return
	}
	c := in.With(s.newID())
	s.Seed(c)
	s.write(w, http.StatusCreated, c)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	id := contactID(r)
	var in models.ContactInput
	if !s.decode(w, r, &in) {
		return
	}
	if msgs := validateInput(in); msgs != nil {
		s.write(w, http.StatusBadRequest, map[string][]string{"errorMessages": msgs})
		return
	}
	s.mu.Lock()
	_, ok := s.contacts[id]
	if ok {
		s.contacts[id] = in.With(id)
	}
	s.mu.Unlock()
	if !ok {
		s.write(w, http.StatusNotFound, map[string]string{"message": "Contact not found."})
		return
	}
	s.write(w, http.StatusOK, in.With(id))
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	id := contactID(r)
	s.mu.Lock()
	_, ok := s.contacts[id]
	if ok {
		delete(s.contacts, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		s.write(w, http.StatusNotFound, map[string]string{"message": "Contact not found."})
		return
	}
	s.write(w, http.StatusNoContent, nil)
}
