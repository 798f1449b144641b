package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/export"
	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
)

func (s *HTTPServer) routes(r chi.Router) {
	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.files != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", s.files))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
		r.With(s.requireAuth).Put("/password", s.handleChangePassword)
	})

	s.publicRoutes(r)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireAuth)
		s.adminRoutes(r)
	})
	r.Route("/api/money", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Route("/idea-nodes", func(r chi.Router) {
			mountAdmin(s, r, s.service.ideaNodes, false)
			r.Patch("/{id}/position", s.handleMoveIdeaNode)
			r.Put("/{id}/connections", s.handleIdeaConnections)
		})
		r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, s.service.IdeaSummary(r.Context()), http.StatusOK, "")
		})
	})
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/generate", s.handleGenerate)
		r.Post("/translate", s.handleTranslate)
		r.Get("/chats", s.handleListChats)
		r.Post("/chats", s.handleCreateChat)
		r.Get("/chats/{id}", s.handleGetChat)
		r.Delete("/chats/{id}", s.handleDeleteChat)
		r.Post("/chats/{id}/messages", s.handleChatMessage)
	})
}

func (s *HTTPServer) publicRoutes(r chi.Router) {
	svc := s.service

	r.Get("/api/locales", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, svc.Locales(false), "")
	})
	r.Get("/api/categories", publicList(s, svc.categories, false, nil))
	r.Get("/api/projects", publicList(s, svc.projects, true, func(r *http.Request, filter *store.ListFilter) {
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filter.Where = map[string]any{"category_id": category}
		}
	}))
	r.Get("/api/projects/{slug}", publicGet(s, svc.projects, "slug"))

	r.Get("/api/blog", publicList(s, svc.posts, true, func(r *http.Request, filter *store.ListFilter) {
		query := r.URL.Query()
		if category := strings.TrimSpace(query.Get("category")); category != "" {
			filter.Where = map[string]any{"category_id": category}
		}
		if tag := strings.TrimSpace(query.Get("tag")); tag != "" {
			filter.Contains = map[string]string{"tags": tag}
		}
	}))
	r.Get("/api/blog/tags", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, svc.PostTags(r.Context()), http.StatusOK, "")
	})
	r.Get("/api/blog/{slug}", publicGet(s, svc.posts, "slug"))

	r.Get("/api/testimonials", publicList(s, svc.testimonials, true, nil))
	r.Post("/api/testimonials", func(w http.ResponseWriter, r *http.Request) {
		var body TestimonialSubmission
		if err := decodeBody(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(s, w, r, svc.SubmitTestimonial(r.Context(), body), http.StatusCreated, "Thank you! Your testimonial will appear once reviewed.")
	})

	r.Get("/api/about", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, svc.About(r.Context(), r.URL.Query().Get("locale")), http.StatusOK, "")
	})
	r.Get("/api/about/resume", s.handleResume(export.FormatHTML))
	r.Get("/api/about/resume.html", s.handleResume(export.FormatHTML))
	r.Get("/api/about/resume.pdf", s.handleResume(export.FormatPDF))
	r.Get("/api/about/resume.docx", s.handleResume(export.FormatDOCX))

	r.Post("/api/contact", func(w http.ResponseWriter, r *http.Request) {
		var body ContactInput
		if err := decodeBody(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(s, w, r, svc.SubmitContact(r.Context(), body), http.StatusCreated, "Message sent")
	})

	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		writeResult(s, w, r, svc.Search(r.Context(),
			query.Get("q"),
			search.ParseResultType(query.Get("type")),
			intOr(parseInt(query.Get("limit")), 0),
			intOr(parseInt(query.Get("offset")), 0),
		), http.StatusOK, "")
	})
}

func (s *HTTPServer) adminRoutes(r chi.Router) {
	svc := s.service

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, svc.Stats(r.Context()), http.StatusOK, "")
	})

	r.Route("/categories", func(r chi.Router) { mountAdmin(s, r, svc.categories, false) })
	r.Route("/projects", func(r chi.Router) { mountAdmin(s, r, svc.projects, true) })
	r.Route("/blog", func(r chi.Router) {
		mountAdmin(s, r, svc.posts, true)
		r.Get("/{id}/history", s.handlePostHistory)
		r.Get("/{id}/history/{hash}", s.handlePostRevision)
		r.Post("/{id}/history/{hash}/restore", s.handleRestoreRevision)
	})
	r.Route("/testimonials", func(r chi.Router) { mountAdmin(s, r, svc.testimonials, true) })
	r.Route("/about", func(r chi.Router) {
		r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, svc.GetProfile(r.Context()), http.StatusOK, "")
		})
		r.Put("/profile", func(w http.ResponseWriter, r *http.Request) {
			var body store.Profile
			if err := decodeBody(r, &body); err != nil {
				s.fail(w, r, err)
				return
			}
			writeResult(s, w, r, svc.SaveProfile(r.Context(), body), http.StatusOK, "Profile saved")
		})
		r.Route("/experiences", func(r chi.Router) { mountAdmin(s, r, svc.experiences, false) })
		r.Route("/education", func(r chi.Router) { mountAdmin(s, r, svc.education, false) })
		r.Route("/skills", func(r chi.Router) { mountAdmin(s, r, svc.skills, false) })
	})

	r.Route("/translations", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			writeResult(s, w, r, svc.ListTranslations(r.Context(), store.TranslationFilter{
				EntityType: query.Get("entityType"),
				EntityID:   query.Get("entityId"),
				Locale:     query.Get("locale"),
			}), http.StatusOK, "")
		})
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Translations []TranslationInput `json:"translations"`
			}
			if err := decodeBody(r, &body); err != nil {
				s.fail(w, r, err)
				return
			}
			writeResult(s, w, r, svc.SaveTranslations(r.Context(), body.Translations), http.StatusOK, "Translations saved")
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, svc.DeleteTranslation(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "Deleted")
		})
	})
	r.Get("/locales", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, svc.Locales(true), "")
	})

	r.Post("/uploads", s.handleUpload)
	r.Delete("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, svc.DeleteUpload(r.Context(), chi.URLParam(r, "*")), http.StatusOK, "Deleted")
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
			writeResult(s, w, r, svc.ListContactMessages(r.Context(), unread, parseListFilter(r)), http.StatusOK, "")
		})
		r.Patch("/{id}/read", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, svc.MarkContactMessageRead(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "")
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, svc.DeleteContactMessage(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "Deleted")
		})
	})

	r.Post("/search/reindex", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, svc.Reindex(r.Context()), http.StatusOK, "")
	})
}

// mountAdmin registers the CRUD, toggle and reorder routes of a resource on r.
func mountAdmin[T any, P store.Row[T]](s *HTTPServer, r chi.Router, res *Resource[T, P], featured bool) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		filter := parseListFilter(r)
		if !featured {
			filter.Featured = nil
		}
		writeResult(s, w, r, res.List(r.Context(), filter), http.StatusOK, "")
	})
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var item T
		if err := decodeBody(r, &item); err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(s, w, r, res.Create(r.Context(), item), http.StatusCreated, "Created")
	})
	r.Put("/reorder", func(w http.ResponseWriter, r *http.Request) {
		items, err := decodeOrder(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(s, w, r, res.Reorder(r.Context(), items), http.StatusOK, "Order updated")
	})
	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, res.Get(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "")
	})
	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(s, w, r, res.Update(r.Context(), chi.URLParam(r, "id"), decodeInto[T](raw)), http.StatusOK, "Updated")
	})
	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, res.Delete(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "Deleted")
	})
	r.Patch("/{id}/toggle-visibility", func(w http.ResponseWriter, r *http.Request) {
		writeResult(s, w, r, res.ToggleVisibility(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "")
	})
	if featured {
		r.Patch("/{id}/toggle-featured", func(w http.ResponseWriter, r *http.Request) {
			writeResult(s, w, r, res.ToggleFeatured(r.Context(), chi.URLParam(r, "id")), http.StatusOK, "")
		})
	}
}

// decodeOrder accepts {"items": [...]} or a bare array.
func decodeOrder(r *http.Request) ([]store.OrderItem, error) {
	raw, err := readBody(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Items []store.OrderItem `json:"items"`
	}
	target := any(&body)
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		target = &body.Items
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, badRequest("invalid JSON body", nil)
	}
	if len(body.Items) == 0 {
		return nil, badRequest("items must not be empty", nil)
	}
	return body.Items, nil
}

// publicList serves visible rows only. refine may add type specific filters.
func publicList[T any, P store.Row[T]](s *HTTPServer, res *Resource[T, P], featured bool, refine func(*http.Request, *store.ListFilter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := parseListFilter(r)
		visible := true
		filter.Visible = &visible
		if !featured {
			filter.Featured = nil
		}
		if refine != nil {
			refine(r, &filter)
		}
		writeResult(s, w, r, res.List(r.Context(), filter), http.StatusOK, "")
	}
}

func publicGet[T any, P store.Row[T]](s *HTTPServer, res *Resource[T, P], param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, param)
		writeResult(s, w, r, res.GetPublic(r.Context(), key, r.URL.Query().Get("locale"), param == "slug"), http.StatusOK, "")
	}
}

// Auth handlers

type sessionView struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
	// RefreshToken is returned for clients that cannot keep cookies.
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

func viewSession(session Session) sessionView {
	return sessionView{
		UserID:       session.UserID,
		Email:        session.Email,
		Name:         session.Name,
		AccessToken:  session.Token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		s.fail(w, r, badRequest("email and password are required", nil))
		return
	}
	session, err := s.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookies(w, session)
	writeSuccess(w, http.StatusOK, viewSession(session), "Signed in")
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	token := strings.TrimSpace(body.RefreshToken)
	if token == "" {
		if cookie, err := r.Cookie(refreshCookie); err == nil {
			token = cookie.Value
		}
	}
	session, err := s.service.Refresh(r.Context(), token)
	if err != nil {
		s.clearSessionCookies(w)
		s.fail(w, r, err)
		return
	}
	s.setSessionCookies(w, session)
	writeSuccess(w, http.StatusOK, viewSession(session), "")
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = decodeBody(r, &body)
	refresh := strings.TrimSpace(body.RefreshToken)
	if refresh == "" {
		if cookie, err := r.Cookie(refreshCookie); err == nil {
			refresh = cookie.Value
		}
	}
	auth := s.verifyAuth(r)
	_ = s.service.Logout(r.Context(), auth.session, refresh)
	s.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, map[string]any{"ok": true}, "Signed out")
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	auth := s.verifyAuth(r)
	if !auth.Success {
		writeSuccess(w, http.StatusOK, map[string]any{"authenticated": false}, "")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        auth.session.UserID,
		"email":         auth.session.Email,
		"name":          auth.session.Name,
	}, "")
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.ChangePassword(r.Context(), sessionFrom(r).UserID, body.CurrentPassword, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"ok": true}, "Password changed")
}

// Blog history

func (s *HTTPServer) handlePostHistory(w http.ResponseWriter, r *http.Request) {
	limit := intOr(parseInt(r.URL.Query().Get("limit")), 50)
	writeResult(s, w, r, s.service.PostHistory(r.Context(), chi.URLParam(r, "id"), limit), http.StatusOK, "")
}

func (s *HTTPServer) handlePostRevision(w http.ResponseWriter, r *http.Request) {
	writeResult(s, w, r, s.service.PostRevision(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "hash")), http.StatusOK, "")
}

func (s *HTTPServer) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	writeResult(s, w, r, s.service.RestorePostRevision(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "hash")), http.StatusOK, "Revision restored")
}

// Resume

func (s *HTTPServer) handleResume(defaultFormat export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := defaultFormat
		if requested := r.URL.Query().Get("format"); requested != "" {
			parsed, valid := export.ParseFormat(requested)
			if !valid {
				s.fail(w, r, export.ErrUnsupportedFormat)
				return
			}
			format = parsed
		}
		result, err := s.service.Resume(r.Context(), format, r.URL.Query().Get("locale"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		if format != export.FormatHTML {
			w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
	}
}

// Uploads

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.service.UploadLimit()
	if limit == 0 {
		s.fail(w, r, uploadsUnavailable())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, uploads.ErrTooLarge)
			return
		}
		s.fail(w, r, badRequest("multipart field \"file\" is required", nil))
		return
	}
	defer file.Close()

	result := s.service.Upload(r.Context(), header.Filename, file)
	if result.Success && s.metrics != nil {
		s.metrics.ObserveUpload(result.Data.Size)
	}
	writeResult(s, w, r, result, http.StatusCreated, "Uploaded")
}

// Idea canvas

func (s *HTTPServer) handleMoveIdeaNode(w http.ResponseWriter, r *http.Request) {
	var body Position
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.MoveIdeaNode(r.Context(), chi.URLParam(r, "id"), body), http.StatusOK, "")
}

func (s *HTTPServer) handleIdeaConnections(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Connections []string `json:"connections"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.SetIdeaConnections(r.Context(), chi.URLParam(r, "id"), body.Connections), http.StatusOK, "")
}

// AI

func (s *HTTPServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body ai.Request
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.Generate(r.Context(), body), http.StatusOK, "")
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text         string `json:"text"`
		TargetLocale string `json:"targetLocale"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.Translate(r.Context(), body.Text, body.TargetLocale), http.StatusOK, "")
}

func (s *HTTPServer) handleListChats(w http.ResponseWriter, r *http.Request) {
	writeResult(s, w, r, s.service.ListChats(r.Context(), sessionFrom(r).UserID), http.StatusOK, "")
}

func (s *HTTPServer) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.CreateChat(r.Context(), sessionFrom(r).UserID, body.Title), http.StatusCreated, "Created")
}

func (s *HTTPServer) handleGetChat(w http.ResponseWriter, r *http.Request) {
	writeResult(s, w, r, s.service.GetChat(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")), http.StatusOK, "")
}

func (s *HTTPServer) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	writeResult(s, w, r, s.service.DeleteChat(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")), http.StatusOK, "Deleted")
}

func (s *HTTPServer) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(s, w, r, s.service.SendChatMessage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), body.Content), http.StatusOK, "")
}
