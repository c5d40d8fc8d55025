package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Accounts     *AccountHandler
	Reservations *ReservationHandler
	Tables       *TableHandler
	Config       *ConfigHandler
	Reports      *ReportHandler
	Metrics      http.Handler
	// Authenticate wraps every route that needs a signed-in principal.
	Authenticate func(http.Handler) http.Handler
	// RateLimit wraps the unauthenticated write routes and booking creation.
	RateLimit  func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Authenticate == nil {
			return h
		}
		return cfg.Authenticate(h)
	}
	limit := func(h http.Handler) http.Handler {
		if cfg.RateLimit == nil {
			return h
		}
		return cfg.RateLimit(h)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Auth != nil {
		createSession := limit(http.HandlerFunc(cfg.Auth.CreateSession))
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			createSession.ServeHTTP(w, r)
		})
		deleteCurrent := protect(cfg.Auth.DeleteCurrentSession)
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			deleteCurrent.ServeHTTP(w, r)
		})
	}

	if cfg.Accounts != nil {
		register := limit(http.HandlerFunc(cfg.Accounts.Register))
		list := protect(cfg.Accounts.List)
		mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				list.ServeHTTP(w, r)
			case http.MethodPost:
				register.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		publicPost := map[string]http.Handler{
			"/accounts/confirm":        limit(http.HandlerFunc(cfg.Accounts.Confirm)),
			"/accounts/password-reset": limit(http.HandlerFunc(cfg.Accounts.RequestPasswordReset)),
			"/accounts/password":       limit(http.HandlerFunc(cfg.Accounts.ResetPassword)),
			"/accounts/staff":          protect(cfg.Accounts.CreateStaff),
		}
		for path, handler := range publicPost {
			mux.Handle(path, postOnly(handler))
		}
		changeRole := protect(cfg.Accounts.ChangeRole)
		mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath("/accounts/", r.URL.Path)
			if !ok || action != "role" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			changeRole.ServeHTTP(w, withResourceID(r, id))
		})
	}

	if cfg.Reservations != nil {
		create := limit(protect(cfg.Reservations.Create))
		mux.HandleFunc("/reservations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			create.ServeHTTP(w, r)
		})
		mux.Handle("/reservations/options", getOnly(protect(cfg.Reservations.Options)))
		mux.Handle("/my-reservations", getOnly(protect(cfg.Reservations.ListMine)))

		cancel := protect(cfg.Reservations.CancelMine)
		status := protect(cfg.Reservations.Status)
		mux.HandleFunc("/my-reservations/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath("/my-reservations/", r.URL.Path)
			if !ok {
				http.NotFound(w, r)
				return
			}
			switch action {
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cancel.ServeHTTP(w, withResourceID(r, id))
			case "status":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				status.ServeHTTP(w, withResourceID(r, id))
			default:
				http.NotFound(w, r)
			}
		})

		mux.Handle("/admin/reservations", getOnly(protect(cfg.Reservations.List)))
		mux.Handle("/admin/reservations/export", getOnly(protect(cfg.Reservations.Export)))
		actions := map[string]http.Handler{
			"state":      protect(cfg.Reservations.ChangeState),
			"reschedule": protect(cfg.Reservations.Reschedule),
			"delete":     protect(cfg.Reservations.Delete),
		}
		mux.HandleFunc("/admin/reservations/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath("/admin/reservations/", r.URL.Path)
			handler, known := actions[action]
			if !ok || !known {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			handler.ServeHTTP(w, withResourceID(r, id))
		})
	}

	if cfg.Tables != nil {
		list := protect(cfg.Tables.List)
		create := protect(cfg.Tables.Create)
		mux.HandleFunc("/tables", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				list.ServeHTTP(w, r)
			case http.MethodPost:
				create.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.Handle("/tables/occupancy", getOnly(protect(cfg.Tables.Occupancy)))
		update := protect(cfg.Tables.Update)
		remove := protect(cfg.Tables.Delete)
		mux.HandleFunc("/tables/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath("/tables/", r.URL.Path)
			if !ok || action != "" {
				http.NotFound(w, r)
				return
			}
			r = withResourceID(r, id)
			switch r.Method {
			case http.MethodPut:
				update.ServeHTTP(w, r)
			case http.MethodDelete:
				remove.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Config != nil {
		listHours := protect(cfg.Config.ListHours)
		upsertHours := protect(cfg.Config.UpsertHours)
		mux.HandleFunc("/config/hours", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				listHours.ServeHTTP(w, r)
			case http.MethodPost:
				upsertHours.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		deleteHours := protect(cfg.Config.DeleteHours)
		mux.HandleFunc("/config/hours/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath("/config/hours/", r.URL.Path)
			if !ok || action != "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			deleteHours.ServeHTTP(w, withResourceID(r, id))
		})
		getPolicy := protect(cfg.Config.GetPolicy)
		updatePolicy := protect(cfg.Config.UpdatePolicy)
		mux.HandleFunc("/config/policy", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				getPolicy.ServeHTTP(w, r)
			case http.MethodPut:
				updatePolicy.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
	}

	if cfg.Reports != nil {
		mux.Handle("/reports/summary", getOnly(protect(cfg.Reports.Summary)))
		mux.Handle("/reports/summary/export", getOnly(protect(cfg.Reports.ExportSummary)))
		mux.Handle("/admin/dashboard", getOnly(protect(cfg.Reports.Dashboard)))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// splitResourcePath turns "/prefix/{id}" or "/prefix/{id}/{action}" into its parts.
func splitResourcePath(prefix, path string) (id, action string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		if parts[0] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

func withResourceID(r *http.Request, id string) *http.Request {
	return r.WithContext(ContextWithResourceID(r.Context(), id))
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
