package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	adminuc "github.com/akurin/identity-server-demo/app/internal/usecase/admin"
)

const adminIndexPath = "/Admin"

type adminView struct {
	Email   string `json:"email" validate:"required"`
	IsAdmin bool   `json:"isAdmin"`
}

func (v *adminView) bindForm(form url.Values) {
	v.Email = firstForm(form, "Email", "email")
	v.IsAdmin = formBool(form, "IsAdmin", "isAdmin")
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required"`
	IsAdmin  bool   `json:"isAdmin"`
	Password string `json:"password" validate:"required"`
}

func (c *createUserRequest) bindForm(form url.Values) {
	c.Email = firstForm(form, "Email", "email")
	c.Password = firstForm(form, "Password", "password")
	c.IsAdmin = formBool(form, "IsAdmin", "isAdmin")
}

func (a *API) handleAdminIndex(w http.ResponseWriter, r *http.Request) {
	views, err := a.adminSvc.List(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := make([]adminView, 0, len(views))
	for _, v := range views {
		resp = append(resp, mapAdminView(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAdminDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := adminID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	view, err := a.adminSvc.Details(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAdminView(*view))
}

func (a *API) handleAdminCreateForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, createUserRequest{})
}

func (a *API) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		req.Password = ""
		respondValidation(w, err, req)
		return
	}

	if err := a.adminSvc.Create(r.Context(), adminuc.CreateInput{
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
		Password: req.Password,
	}); err != nil {
		handleDomainError(w, err)
		return
	}
	http.Redirect(w, r, adminIndexPath, http.StatusSeeOther)
}

func (a *API) handleAdminEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := adminID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	view, err := a.adminSvc.EditView(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAdminView(*view))
}

func (a *API) handleAdminEdit(w http.ResponseWriter, r *http.Request) {
	var req adminView
	if err := decodeBody(r, &req); err != nil {
		respondValidation(w, err, req)
		return
	}
	id, ok := adminID(r)
	if !ok || id != req.Email {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := a.validator.Struct(&req); err != nil {
		respondValidation(w, err, req)
		return
	}

	if err := a.adminSvc.Edit(r.Context(), id, adminuc.View{
		Email:   req.Email,
		IsAdmin: req.IsAdmin,
	}); err != nil {
		handleDomainError(w, err)
		return
	}
	http.Redirect(w, r, adminIndexPath, http.StatusSeeOther)
}

func (a *API) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := adminID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := a.adminSvc.Delete(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	http.Redirect(w, r, adminIndexPath, http.StatusSeeOther)
}

// adminID returns the decoded {id} route value. chi matches on the raw
// path, so an escaped "@" arrives as "%40".
func adminID(r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	return id, err == nil
}

func mapAdminView(v adminuc.View) adminView {
	return adminView{Email: v.Email, IsAdmin: v.IsAdmin}
}

func firstForm(form url.Values, keys ...string) string {
	for _, k := range keys {
		if v := form.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// formBool treats checkbox values ("on", "true", "1") as true.
func formBool(form url.Values, keys ...string) bool {
	v := firstForm(form, keys...)
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
