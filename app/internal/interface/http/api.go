package http

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/akurin/identity-server-demo/app/internal/domain/claim"
	"github.com/akurin/identity-server-demo/app/internal/domain/oidc"
	domuser "github.com/akurin/identity-server-demo/app/internal/domain/user"
	domrole "github.com/akurin/identity-server-demo/app/internal/domain/userrole"
	"github.com/akurin/identity-server-demo/app/internal/infra/logging"
	adminuc "github.com/akurin/identity-server-demo/app/internal/usecase/admin"
	authuc "github.com/akurin/identity-server-demo/app/internal/usecase/auth"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// KeySet publishes the public signing keys.
type KeySet interface {
	JWKS() jose.JSONWebKeySet
}

type API struct {
	adminSvc  *adminuc.Service
	authSvc   *authuc.Service
	registry  *oidc.Registry
	keys      KeySet
	issuer    string
	db        Pinger
	log       logrus.FieldLogger
	validator *validator.Validate
}

type Dependencies struct {
	AdminService *adminuc.Service
	AuthService  *authuc.Service
	Registry     *oidc.Registry
	Keys         KeySet
	Issuer       string
	DB           Pinger
	Logger       logrus.FieldLogger
}

func NewAPI(deps Dependencies) *API {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		adminSvc:  deps.AdminService,
		authSvc:   deps.AuthService,
		registry:  deps.Registry,
		keys:      deps.Keys,
		issuer:    deps.Issuer,
		db:        deps.DB,
		log:       log,
		validator: validator.New(),
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(a.log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "application/x-www-form-urlencoded", "text/plain"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Hello World!"))
	})
	r.Get("/health", a.handleHealth)

	r.Get("/.well-known/openid-configuration", a.handleDiscovery)
	r.Get("/.well-known/openid-configuration/jwks", a.handleJWKS)
	r.Post("/connect/token", a.handleToken)
	r.Get("/connect/userinfo", a.handleUserInfo)
	r.Post("/connect/userinfo", a.handleUserInfo)

	r.Group(func(ar chi.Router) {
		ar.Use(a.authMiddleware)
		ar.Use(a.requireRole(domuser.RoleAdmin))

		ar.Route("/Admin", func(admin chi.Router) {
			admin.Get("/", a.handleAdminIndex)
			admin.Get("/Index", a.handleAdminIndex)
			admin.Get("/Details/{id}", a.handleAdminDetails)
			admin.Get("/Create", a.handleAdminCreateForm)
			admin.Post("/Create", a.handleAdminCreate)
			admin.Get("/Edit/{id}", a.handleAdminEditForm)
			admin.Post("/Edit/{id}", a.handleAdminEdit)
			admin.Get("/Delete/{id}", a.handleAdminDelete)
		})

		ar.Get("/claims", a.handleClaims)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			a.log.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// formBinder is implemented by requests that may arrive url-encoded.
type formBinder interface {
	bindForm(form url.Values)
}

// decodeAndValidate reads a JSON or url-encoded body into dst and validates it.
func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if binder, ok := dst.(formBinder); ok && mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return err
		}
		binder.bindForm(r.PostForm)
	} else if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Model   any    `json:"model,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// respondValidation writes a 400 with per-field messages and the submitted model.
func respondValidation(w http.ResponseWriter, err error, model any) {
	resp := errorResponse{Error: "validation failed", Model: model}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		resp.Details = fields
	} else {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domuser.ErrUserNotFound),
		errors.Is(err, domrole.ErrRoleNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, domuser.ErrDuplicateUserName),
		errors.Is(err, domuser.ErrUserAlreadyInRole),
		errors.Is(err, domrole.ErrRoleNameExisted),
		errors.Is(err, domrole.ErrMembershipExisted):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, domuser.ErrPasswordPolicy),
		errors.Is(err, domuser.ErrInvalidUserName),
		errors.Is(err, domrole.ErrInvalidRoleName),
		errors.Is(err, claim.ErrInvalidClaimType),
		errors.Is(err, claim.ErrInvalidClaimValue),
		errors.Is(err, claim.ErrUnknownValueType):
		respondError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, authuc.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
	default:
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
