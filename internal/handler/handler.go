package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/brokerdesk/backoffice/backend/internal/config"
	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/utils"
)

// Lifecycle is implemented by *lifecycle.Coordinator.
type Lifecycle interface {
	Get(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error)
	Create(ctx context.Context, kind domain.Kind, fields domain.Fields, password string) (*domain.Entity, error)
	Update(ctx context.Context, kind domain.Kind, id string, changes domain.Changes) (*domain.Entity, error)
	Deactivate(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error)
	Reactivate(ctx context.Context, kind domain.Kind, id string) (*domain.Entity, error)
	PermanentDelete(ctx context.Context, kind domain.Kind, id string) (domain.DeleteResult, error)
}

// Directory is the read side of the directory plus office bookkeeping.
type Directory interface {
	List(ctx context.Context, kind domain.Kind, search string) ([]*domain.Entity, error)
	GetOffice(ctx context.Context, id string) (*domain.Office, error)
	CreateOffice(ctx context.Context, office *domain.Office) error
	UpdateOffice(ctx context.Context, office *domain.Office) error
	ListOffices(ctx context.Context) ([]*domain.Office, error)
}

// Authenticator checks password logins. Only the local identity provider
// offers one; with a hosted provider logins happen there.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.Account, error)
}

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	translator    ut.Translator
	directory     Directory
	lifecycle     Lifecycle
	authenticator Authenticator
	metrics       http.Handler

	Mux *chi.Mux
}

// NewHandler registers English messages on validate. Pass the same validator
// to the lifecycle coordinator so its errors translate too.
func NewHandler(cfg *config.Config, validate *validator.Validate, directory Directory, lc Lifecycle, authenticator Authenticator, metrics http.Handler) (*Handler, error) {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := utils.RegisterValidations(validate); err != nil {
		return nil, err
	}
	err := validate.RegisterTranslation("cpf", trans, func(ut ut.Translator) error {
		return ut.Add("cpf", "{0} must be a valid CPF", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("cpf", fe.Field())
		return t
	})
	if err != nil {
		return nil, err
	}

	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		validate:      validate,
		config:        cfg,
		translator:    trans,
		directory:     directory,
		lifecycle:     lc,
		authenticator: authenticator,
		metrics:       metrics,

		Mux: chi.NewRouter(),
	}, nil
}

var (
	platformAdminOnly = []domain.Role{domain.RolePlatformAdmin}
	adminRoles        = []domain.Role{domain.RolePlatformAdmin, domain.RoleOfficeAdmin}
)

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	if h.metrics != nil {
		h.Mux.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// everything below requires a session
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/me", func(r chi.Router) {
			r.Use(h.me)
			r.Get("/", h.GetMe)
			r.Get("/navigation", h.GetMyNavigation)
		})

		r.Route("/offices", func(r chi.Router) {
			r.With(h.RequiredRole(platformAdminOnly)).Post("/", h.CreateOffice)
			r.Get("/", h.GetAllOffices)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.office)
				r.Get("/", h.GetOffice)
				r.With(h.RequiredRole(platformAdminOnly)).Patch("/", h.UpdateOffice)
			})
		})

		r.With(h.RequiredRole(platformAdminOnly)).Route("/admins", h.entityRoutes(domain.KindPlatformAdmin))
		r.With(h.RequiredRole(adminRoles)).Route("/advisors", h.entityRoutes(domain.KindAdvisor))
		r.With(h.RequiredRole(adminRoles)).Route("/users", h.entityRoutes(domain.KindUser))
	})
}

func (h *Handler) entityRoutes(kind domain.Kind) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.CreateEntity(kind))
		r.Get("/", h.ListEntities(kind))
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.entity(kind))
			r.Get("/", h.GetEntity)
			r.Patch("/", h.UpdateEntity(kind))
			r.With(h.preventOperateSelf).Post("/deactivate", h.DeactivateEntity(kind))
			r.Post("/reactivate", h.ReactivateEntity(kind))
			r.With(h.preventOperateSelf).Delete("/", h.DeleteEntity(kind))
		})
	}
}
