package app

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/profile"
	"github.com/MrEthical07/goSession/signin"
)

type handlers struct {
	session *goSession.Manager
	flow    *signin.Flow
	syncer  *profile.Syncer
	routes  guard.Routes
	pages   *template.Template
	logger  *slog.Logger
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home.html", newPageData("Home", h.session.View(), h.routes))
}

func (h *handlers) showLogin(w http.ResponseWriter, r *http.Request) {
	data := newPageData("Log in", h.session.View(), h.routes)
	data.Next = middleware.ReturnTo(r, "")
	h.render(w, r, http.StatusOK, "login.html", data)
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	res, err := h.flow.SignIn(r.Context(), email, password)
	switch {
	case errors.Is(err, signin.ErrEmailUnverified):
		http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
		return
	case err != nil:
		h.logger.InfoContext(r.Context(), "sign-in failed", slog.Any("error", err))
		data := newPageData("Log in", h.session.View(), h.routes)
		data.Error = "Invalid email or password."
		data.Email = email
		data.Next = middleware.ReturnTo(r, "")
		h.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}
	http.Redirect(w, r, middleware.ReturnTo(r, res.Redirect), http.StatusSeeOther)
}

func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	location, err := h.flow.SignOut(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sign-out failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "verify.html", newPageData("Verify email", h.session.View(), h.routes))
}

func (h *handlers) dashboard(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, "dashboard.html", newPageData(title, h.session.View(), h.routes))
	}
}

func (h *handlers) showProfile(w http.ResponseWriter, r *http.Request) {
	_, err := h.syncer.Refresh(r.Context())
	page := newPageData("Profile", h.session.View(), h.routes)
	if err != nil {
		h.logger.WarnContext(r.Context(), "profile refresh failed", slog.Any("error", err))
		page.Error = profile.UserMessage(err)
	}
	h.render(w, r, http.StatusOK, "profile.html", page)
}

func (h *handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var patch goSession.UserPatch
	formField(r, "first_name", &patch.FirstName)
	formField(r, "last_name", &patch.LastName)
	formField(r, "phone_number", &patch.PhoneNumber)
	formField(r, "bio", &patch.Bio)

	var errMsg, notice string
	status := http.StatusOK
	if _, err := h.syncer.Update(r.Context(), patch); err != nil {
		h.logger.WarnContext(r.Context(), "profile update failed", slog.Any("error", err))
		errMsg = profile.UserMessage(err)
		status = http.StatusBadGateway
	} else {
		notice = "Profile updated."
	}

	page := newPageData("Profile", h.session.View(), h.routes)
	page.Error = errMsg
	page.Notice = notice
	h.render(w, r, status, "profile.html", page)
}

func formField(r *http.Request, name string, dst **string) {
	if _, ok := r.PostForm[name]; !ok {
		return
	}
	v := strings.TrimSpace(r.PostForm.Get(name))
	*dst = &v
}

type sessionState struct {
	Status        string          `json:"status"`
	Authenticated bool            `json:"authenticated"`
	User          *goSession.User `json:"user,omitempty"`
}

func (h *handlers) sessionJSON(w http.ResponseWriter, _ *http.Request) {
	v := h.session.View()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(sessionState{
		Status:        v.Status.String(),
		Authenticated: v.IsAuthenticated(),
		User:          v.User,
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
