package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/KaramelBytes/geoportal/internal/store"
)

type authForm struct {
	Username string
	Next     string
	Error    string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", authForm{Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	next := safeNext(r.PostFormValue("next"))
	form := authForm{Username: username, Next: next}

	if s.Accounts == nil {
		form.Error = "Accounts are unavailable."
		s.render(w, r, http.StatusServiceUnavailable, "login", form)
		return
	}
	if err := s.Accounts.Authenticate(r.Context(), username, password); err != nil {
		if !errors.Is(err, store.ErrInvalidCredentials) {
			s.Log.Error("authenticate failed", "err", err)
		}
		form.Error = "Invalid username or password."
		s.render(w, r, http.StatusUnauthorized, "login", form)
		return
	}
	sid := s.Sessions.Rotate(r.Context(), w, sessionID(r))
	if err := s.Sessions.SetUser(r.Context(), sid, username); err != nil {
		s.Log.Error("store login failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.Sessions.Flash(r.Context(), sid, "Logged in successfully!"); err != nil {
		s.Log.Warn("flash failed", "err", err)
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", authForm{})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	p1, p2 := r.PostFormValue("password1"), r.PostFormValue("password2")
	form := authForm{Username: username}

	fail := func(status int, msg string) {
		form.Error = "Error creating account. " + msg
		s.render(w, r, status, "signup", form)
	}
	if s.Accounts == nil {
		fail(http.StatusServiceUnavailable, "Accounts are unavailable.")
		return
	}
	if p1 != p2 {
		fail(http.StatusBadRequest, "The two password fields didn't match.")
		return
	}
	if err := s.Accounts.CreateUser(r.Context(), username, p1); err != nil {
		var ve *store.ValidationError
		switch {
		case errors.As(err, &ve):
			fail(http.StatusBadRequest, ve.Error())
		case errors.Is(err, store.ErrUserExists):
			fail(http.StatusConflict, "A user with that username already exists.")
		default:
			s.Log.Error("create user failed", "err", err)
			fail(http.StatusInternalServerError, "Please try again later.")
		}
		return
	}
	sid := s.Sessions.Rotate(r.Context(), w, sessionID(r))
	if err := s.Sessions.SetUser(r.Context(), sid, username); err != nil {
		s.Log.Error("store login failed", "err", err)
	}
	if err := s.Sessions.Flash(r.Context(), sid, "Account created successfully!"); err != nil {
		s.Log.Warn("flash failed", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sid := s.Sessions.Renew(r.Context(), w, r)
	if err := s.Sessions.Flash(r.Context(), sid, "You have been logged out successfully."); err != nil {
		s.Log.Warn("flash failed", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
