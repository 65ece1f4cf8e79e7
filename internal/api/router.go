// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package api is the HTTP surface of StoryBoard. Requests pass through an
// ordered hook chain (session, auth, validation, field scrubbing,
// notification) before reaching resource handlers; every successful
// mutation leaves one event on the notification bus.
package api

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openstack-infra/storyboard-sub001/internal/auth"
	"github.com/openstack-infra/storyboard-sub001/internal/config"
	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/logging"
	"github.com/openstack-infra/storyboard-sub001/internal/notifications"
)

// Router wires the store, the notification publisher and the OAuth service
// into the HTTP mux.
type Router struct {
	cfg       *config.Config
	store     *database.Store
	publisher *notifications.Publisher
	oauth     *auth.Service
	validate  *validator.Validate
}

// NewRouter builds the API surface. publisher may be nil when
// notifications are disabled.
func NewRouter(cfg *config.Config, store *database.Store, publisher *notifications.Publisher) *Router {
	validate := validator.New()
	// Error bodies name fields as clients sent them.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Router{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		oauth:     auth.NewService(store),
		validate:  validate,
	}
}

// Handler assembles the middleware stack and the /v1 routes.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         rt.cfg.CORS.MaxAge,
	}))

	hooks := []hook{
		metricsHook(),
		rt.sessionHook(),
		rt.authHook(),
		rt.validationHook(),
		rt.scrubHook(),
	}
	if rt.cfg.API.EnableNotifications {
		hooks = append(hooks, rt.notificationHook())
	}
	for _, h := range sortHooks(hooks) {
		r.Use(h.wrap)
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/systeminfo", rt.getSystemInfo)

		r.Route("/openid", func(r chi.Router) {
			r.Get("/authorize", rt.authorize)
			r.Post("/token", rt.token)
		})

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", rt.listStories)
			r.Post("/", rt.createStory)
			r.Get("/search", rt.searchStories)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getStory)
				r.Put("/", rt.updateStory)
				r.Delete("/", rt.deleteStory)
				r.Get("/tasks", rt.listStoryTasks)
				r.Get("/comments", rt.listStoryComments)
				r.Post("/comments", rt.createComment)
				r.Get("/events", rt.listStoryEvents)
				r.Get("/tags", rt.listStoryTags)
				r.Put("/tags", rt.addStoryTags)
				r.Delete("/tags", rt.removeStoryTags)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getComment)
				r.Put("/", rt.updateComment)
				r.Delete("/", rt.deleteComment)
				r.Get("/history", rt.getCommentHistory)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", rt.listTasks)
			r.Post("/", rt.createTask)
			r.Get("/search", rt.searchTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getTask)
				r.Put("/", rt.updateTask)
				r.Delete("/", rt.deleteTask)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.listProjects)
			r.Post("/", rt.createProject)
			r.Get("/search", rt.searchProjects)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getProject)
				r.Put("/", rt.updateProject)
			})
		})

		r.Route("/project_groups", func(r chi.Router) {
			r.Get("/", rt.listProjectGroups)
			r.Post("/", rt.createProjectGroup)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getProjectGroup)
				r.Put("/", rt.updateProjectGroup)
				r.Delete("/", rt.deleteProjectGroup)
				r.Get("/projects", rt.listGroupProjects)
				r.Put("/projects/{project_id}", rt.addProjectToGroup)
				r.Delete("/projects/{project_id}", rt.removeProjectFromGroup)
			})
		})

		r.Route("/branches", func(r chi.Router) {
			r.Get("/", rt.listBranches)
			r.Post("/", rt.createBranch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getBranch)
				r.Put("/", rt.updateBranch)
			})
		})

		r.Route("/milestones", func(r chi.Router) {
			r.Get("/", rt.listMilestones)
			r.Post("/", rt.createMilestone)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getMilestone)
				r.Put("/", rt.updateMilestone)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", rt.listUsers)
			r.Post("/", rt.createUser)
			r.Get("/search", rt.searchUsers)
			r.Get("/self", rt.getSelf)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getUser)
				r.Put("/", rt.updateUser)
				r.Get("/preferences", rt.getPreferences)
				r.Post("/preferences", rt.setPreferences)
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", rt.listTeams)
			r.Post("/", rt.createTeam)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getTeam)
				r.Put("/users/{user_id}", rt.addTeamMember)
				r.Delete("/users/{user_id}", rt.removeTeamMember)
			})
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", rt.listSubscriptions)
			r.Post("/", rt.createSubscription)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getSubscription)
				r.Delete("/", rt.deleteSubscription)
			})
		})

		r.Route("/subscription_events", func(r chi.Router) {
			r.Get("/", rt.listSubscriptionEvents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getSubscriptionEvent)
				r.Delete("/", rt.deleteSubscriptionEvent)
			})
		})

		r.Route("/worklists", func(r chi.Router) {
			r.Get("/", rt.listWorklists)
			r.Post("/", rt.createWorklist)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getWorklist)
				r.Put("/", rt.updateWorklist)
				r.Delete("/", rt.archiveWorklist)
				r.Get("/items", rt.listWorklistItems)
				r.Post("/items", rt.addWorklistItem)
				r.Put("/items/{item_id}", rt.moveWorklistItem)
				r.Delete("/items/{item_id}", rt.removeWorklistItem)
				r.Get("/filters", rt.getWorklistFilters)
				r.Put("/filters", rt.setWorklistFilters)
			})
		})

		r.Route("/boards", func(r chi.Router) {
			r.Get("/", rt.listBoards)
			r.Post("/", rt.createBoard)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getBoard)
				r.Put("/", rt.updateBoard)
				r.Get("/lanes", rt.getBoardLanes)
				r.Put("/lanes", rt.setBoardLanes)
			})
		})

		r.Route("/due_dates", func(r chi.Router) {
			r.Post("/", rt.createDueDate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getDueDate)
			})
		})
	})

	return r
}

// requestIDMiddleware attaches a request id to the context and response.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
