package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"atelier/api/internal/auth"
	"atelier/api/internal/authpw"
	"atelier/api/internal/config"
	"atelier/api/internal/events"
	"atelier/api/internal/rbac"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

type CreatePostInput struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	ImageIDs []string `json:"imageIds"`
}

type CreateProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageID     string `json:"imageId"`
}

type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
}

type UpdateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
	Order       int    `json:"order"`
}

type CreateCommentInput struct {
	Body string `json:"body"`
}

type UpdateUserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

var allowedTaskStatuses = map[string]struct{}{
	"pending":     {},
	"in-progress": {},
	"done":        {},
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	ListUsers(context.Context, int) ([]store.User, error)
	UpdateUser(context.Context, string, string, string, string) (bool, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	InsertPost(context.Context, store.Post) error
	ListPosts(context.Context) ([]store.Post, error)
	GetPost(context.Context, string) (store.Post, error)
	DeletePost(context.Context, string) (bool, error)
	InsertProject(context.Context, store.Project) error
	ListProjects(context.Context) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	DeleteProject(context.Context, string) (bool, error)
	InsertTask(context.Context, store.Task) error
	ListTasksByProject(context.Context, string) ([]store.Task, error)
	GetTask(context.Context, string) (store.Task, error)
	TaskCountByProject(context.Context, string) (int, error)
	UpdateTask(context.Context, string, string, string, int) (bool, error)
	UpdateTaskStatus(context.Context, string, string) (bool, error)
	DeleteTask(context.Context, string) (bool, error)
	InsertComment(context.Context, store.Comment) error
	ListCommentsByPost(context.Context, string) ([]store.Comment, error)
	InsertImage(context.Context, store.Image) error
	ListImages(context.Context) ([]store.Image, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type searchService interface {
	SearchPosts(context.Context, string, int) (search.Response, error)
	IndexPost(search.PostRecord)
	RemovePost(string)
}

type blobStore interface {
	GenerateUploadURL(context.Context) (string, string, error)
	ResolveURL(context.Context, string) (string, error)
	Delete(context.Context, string) error
}

type emailService interface {
	IsConfigured() bool
	SendVerificationEmail(to, userName, verificationURL string) error
	SendPasswordResetEmail(to, userName, resetURL string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   searchService
	blobs    blobStore
	authpw   *authpw.Service
	email    emailService
	events   *events.Publisher
}

func New(
	cfg config.Config,
	dataStore dataStore,
	sessions sessionStore,
	searchSvc searchService,
	blobs blobStore,
	authSvc *authpw.Service,
	emailSvc emailService,
	publisher *events.Publisher,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		search:   searchSvc,
		blobs:    blobs,
		authpw:   authSvc,
		email:    emailSvc,
		events:   publisher,
	}
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerification emails a verification link in the background.
func (s *Service) SendVerification(to, name, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.AppBaseURL + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, name, url); err != nil {
			log.Printf("app: send verification email to %s: %v", to, err)
		}
	}()
}

// SendPasswordReset emails a reset link in the background.
func (s *Service) SendPasswordReset(to, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.AppBaseURL + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, "", url); err != nil {
			log.Printf("app: send password reset email to %s: %v", to, err)
		}
	}()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ---------------------------------------------------------------------------
// Sessions

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// Reload so role or name changes apply on the next access token.
	user, err := s.store.GetUserByID(ctx, found.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.Name, user.Email, user.Role, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		Role:         rbac.Normalize(user.Role),
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		Role:      rbac.Normalize(user.Role),
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Posts

func (s *Service) CreatePost(ctx context.Context, session Session, input CreatePostInput) (map[string]any, error) {
	if !rbac.IsStaff(session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only admins can create posts", nil)
	}
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if len(title) < 3 || len(title) > 50 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title must be between 3 and 50 characters", map[string]any{"field": "title"})
	}
	if len(body) < 10 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body must be at least 10 characters", map[string]any{"field": "body"})
	}

	post := store.Post{
		ID:       util.NewID("post"),
		Title:    title,
		Body:     body,
		AuthorID: session.UserID,
		ImageIDs: input.ImageIDs,
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		// The blobs were uploaded before the insert; reclaim them so a
		// failed insert does not leak storage.
		for _, storageID := range input.ImageIDs {
			if delErr := s.blobs.Delete(ctx, storageID); delErr != nil {
				log.Printf("app: reclaim blob %s: %v", storageID, delErr)
			}
		}
		return nil, err
	}

	s.search.IndexPost(search.PostRecord{ID: post.ID, Title: post.Title, Body: post.Body})
	s.events.Publish(events.SubjectPostCreated, post.ID, session.UserID)

	return map[string]any{"id": post.ID}, nil
}

func (s *Service) GetPosts(ctx context.Context) ([]map[string]any, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		payload = append(payload, s.postPayload(ctx, post))
	}
	return payload, nil
}

func (s *Service) GetPostByID(ctx context.Context, postID string) (map[string]any, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.postPayload(ctx, post), nil
}

func (s *Service) DeletePost(ctx context.Context, session Session, postID string) (map[string]any, error) {
	post, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already gone; deletion is idempotent.
		return map[string]any{"success": true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(session.UserID, post.AuthorID, session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	for _, storageID := range post.ImageIDs {
		if err := s.blobs.Delete(ctx, storageID); err != nil {
			log.Printf("app: delete blob %s for post %s: %v", storageID, post.ID, err)
		}
	}

	if _, err := s.store.DeletePost(ctx, postID); err != nil {
		return nil, err
	}

	s.search.RemovePost(postID)
	s.events.Publish(events.SubjectPostDeleted, postID, session.UserID)

	return map[string]any{"success": true}, nil
}

func (s *Service) SearchPosts(ctx context.Context, query string, limit int) (search.Response, error) {
	return s.search.SearchPosts(ctx, query, limit)
}

func (s *Service) postPayload(ctx context.Context, post store.Post) map[string]any {
	urls := make([]string, 0, len(post.ImageIDs))
	for _, storageID := range post.ImageIDs {
		url, err := s.blobs.ResolveURL(ctx, storageID)
		if err != nil {
			log.Printf("app: resolve blob %s for post %s: %v", storageID, post.ID, err)
			continue
		}
		if url != "" {
			urls = append(urls, url)
		}
	}
	return map[string]any{
		"id":        post.ID,
		"title":     post.Title,
		"body":      post.Body,
		"authorId":  post.AuthorID,
		"imageUrls": urls,
		"createdAt": post.CreatedAt.UnixMilli(),
	}
}

// ---------------------------------------------------------------------------
// Projects

func (s *Service) CreateProject(ctx context.Context, session Session, input CreateProjectInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if len(title) < 3 || len(title) > 50 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title must be between 3 and 50 characters", map[string]any{"field": "title"})
	}
	if len(description) < 10 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "description must be at least 10 characters", map[string]any{"field": "description"})
	}

	project := store.Project{
		ID:          util.NewID("proj"),
		Title:       title,
		Description: description,
		AuthorID:    session.UserID,
		ImageID:     strings.TrimSpace(input.ImageID),
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		if project.ImageID != "" {
			if delErr := s.blobs.Delete(ctx, project.ImageID); delErr != nil {
				log.Printf("app: reclaim blob %s: %v", project.ImageID, delErr)
			}
		}
		return nil, err
	}

	if project.ImageID != "" {
		if url, err := s.blobs.ResolveURL(ctx, project.ImageID); err == nil && url != "" {
			record := store.Image{ID: util.NewID("img"), StorageID: project.ImageID, URL: url}
			if err := s.store.InsertImage(ctx, record); err != nil {
				log.Printf("app: record image %s: %v", project.ImageID, err)
			}
		}
	}

	s.events.Publish(events.SubjectProjectCreated, project.ID, session.UserID)

	return map[string]any{"id": project.ID}, nil
}

func (s *Service) GetProjects(ctx context.Context) ([]map[string]any, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		payload = append(payload, s.projectPayload(ctx, project))
	}
	return payload, nil
}

func (s *Service) GetProjectByID(ctx context.Context, projectID string) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.projectPayload(ctx, project), nil
}

func (s *Service) DeleteProject(ctx context.Context, session Session, projectID string) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"success": true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(session.UserID, project.AuthorID, session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	if project.ImageID != "" {
		if err := s.blobs.Delete(ctx, project.ImageID); err != nil {
			log.Printf("app: delete blob %s for project %s: %v", project.ImageID, project.ID, err)
		}
	}

	if _, err := s.store.DeleteProject(ctx, projectID); err != nil {
		return nil, err
	}

	s.events.Publish(events.SubjectProjectDeleted, projectID, session.UserID)

	return map[string]any{"success": true}, nil
}

func (s *Service) projectPayload(ctx context.Context, project store.Project) map[string]any {
	var imageURL string
	if project.ImageID != "" {
		url, err := s.blobs.ResolveURL(ctx, project.ImageID)
		if err != nil {
			log.Printf("app: resolve blob %s for project %s: %v", project.ImageID, project.ID, err)
		} else {
			imageURL = url
		}
	}
	payload := map[string]any{
		"id":          project.ID,
		"title":       project.Title,
		"description": project.Description,
		"authorId":    project.AuthorID,
		"createdAt":   project.CreatedAt.UnixMilli(),
	}
	if imageURL != "" {
		payload["imageUrl"] = imageURL
	}
	return payload
}

// ---------------------------------------------------------------------------
// Tasks

func (s *Service) CreateTask(ctx context.Context, session Session, input CreateTaskInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if len(title) < 3 || len(title) > 50 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title must be between 3 and 50 characters", map[string]any{"field": "title"})
	}
	description := strings.TrimSpace(input.Description)
	if description != "" && len(description) < 10 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "description must be at least 10 characters", map[string]any{"field": "description"})
	}
	if _, err := s.store.GetProject(ctx, input.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
		}
		return nil, err
	}

	count, err := s.store.TaskCountByProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	task := store.Task{
		ID:          util.NewID("task"),
		Title:       title,
		Description: description,
		ProjectID:   input.ProjectID,
		AuthorID:    session.UserID,
		Order:       count + 1,
		Status:      "pending",
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}

	s.events.Publish(events.SubjectTaskCreated, task.ID, session.UserID)

	return map[string]any{"id": task.ID}, nil
}

func (s *Service) GetTasksByProjectID(ctx context.Context, projectID string) ([]map[string]any, error) {
	tasks, err := s.store.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		payload = append(payload, taskPayload(task))
	}
	return payload, nil
}

func (s *Service) UpdateTask(ctx context.Context, session Session, taskID string, input UpdateTaskInput) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
		}
		return nil, err
	}
	if !rbac.CanMutate(session.UserID, task.AuthorID, session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if input.ProjectID != "" && input.ProjectID != task.ProjectID {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "task cannot move between projects", nil)
	}
	title := strings.TrimSpace(input.Title)
	if len(title) < 3 || len(title) > 50 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title must be between 3 and 50 characters", map[string]any{"field": "title"})
	}
	description := strings.TrimSpace(input.Description)
	if description != "" && len(description) < 10 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "description must be at least 10 characters", map[string]any{"field": "description"})
	}

	order := input.Order
	if order <= 0 {
		order = task.Order
	}
	if _, err := s.store.UpdateTask(ctx, taskID, title, description, order); err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}

func (s *Service) UpdateTaskStatus(ctx context.Context, session Session, taskID, status string) (map[string]any, error) {
	if _, ok := allowedTaskStatuses[status]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be pending, in-progress, or done", map[string]any{"field": "status"})
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
		}
		return nil, err
	}
	if !rbac.CanMutate(session.UserID, task.AuthorID, session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}

func (s *Service) DeleteTask(ctx context.Context, session Session, taskID string) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{"success": true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutate(session.UserID, task.AuthorID, session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.DeleteTask(ctx, taskID); err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}

func taskPayload(task store.Task) map[string]any {
	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"projectId":   task.ProjectID,
		"authorId":    task.AuthorID,
		"order":       task.Order,
		"status":      task.Status,
		"createdAt":   task.CreatedAt.UnixMilli(),
	}
}

// ---------------------------------------------------------------------------
// Comments

func (s *Service) CreateComment(ctx context.Context, session Session, postID string, input CreateCommentInput) (map[string]any, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "comment body is required", map[string]any{"field": "body"})
	}
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
		}
		return nil, err
	}

	comment := store.Comment{
		ID:         util.NewID("cmt"),
		PostID:     postID,
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		Body:       body,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}

	s.events.Publish(events.SubjectCommentCreated, comment.ID, session.UserID)

	return map[string]any{"id": comment.ID}, nil
}

func (s *Service) GetCommentsByPostID(ctx context.Context, postID string) ([]map[string]any, error) {
	comments, err := s.store.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, map[string]any{
			"id":         comment.ID,
			"postId":     comment.PostID,
			"authorId":   comment.AuthorID,
			"authorName": comment.AuthorName,
			"body":       comment.Body,
			"createdAt":  comment.CreatedAt.UnixMilli(),
		})
	}
	return payload, nil
}

// ---------------------------------------------------------------------------
// Images

func (s *Service) GenerateUploadURL(ctx context.Context, session Session) (map[string]any, error) {
	if session.UserID == "" {
		return nil, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	storageID, uploadURL, err := s.blobs.GenerateUploadURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"storageId": storageID, "uploadUrl": uploadURL}, nil
}

func (s *Service) RegisterImage(ctx context.Context, session Session, storageID string) (map[string]any, error) {
	if session.UserID == "" {
		return nil, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	storageID = strings.TrimSpace(storageID)
	if storageID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "storageId is required", map[string]any{"field": "storageId"})
	}
	url, err := s.blobs.ResolveURL(ctx, storageID)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Blob not found", nil)
	}

	image := store.Image{ID: util.NewID("img"), StorageID: storageID, URL: url}
	if err := s.store.InsertImage(ctx, image); err != nil {
		return nil, err
	}
	return map[string]any{"id": image.ID, "url": url}, nil
}

func (s *Service) GetImages(ctx context.Context, session Session) ([]map[string]any, error) {
	if session.UserID == "" {
		return nil, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	images, err := s.store.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(images))
	for _, image := range images {
		payload = append(payload, map[string]any{
			"id":        image.ID,
			"storageId": image.StorageID,
			"url":       image.URL,
			"createdAt": image.CreatedAt.UnixMilli(),
		})
	}
	return payload, nil
}

// ---------------------------------------------------------------------------
// Admin

func (s *Service) ListUsers(ctx context.Context, session Session, limit int) ([]map[string]any, error) {
	if !rbac.IsStaff(session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	users, err := s.store.ListUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(users))
	for _, user := range users {
		payload = append(payload, map[string]any{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"verified":  user.IsEmailVerified,
			"createdAt": user.CreatedAt.UnixMilli(),
		})
	}
	return payload, nil
}

func (s *Service) UpdateUser(ctx context.Context, session Session, userID string, input UpdateUserInput) (map[string]any, error) {
	if !rbac.IsStaff(session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 || len(name) > 30 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name must be between 3 and 30 characters", map[string]any{"field": "name"})
	}
	role := strings.TrimSpace(input.Role)
	switch rbac.Role(role) {
	case rbac.RoleUser, rbac.RoleAdmin, rbac.RoleOwner:
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be user, admin, or owner", map[string]any{"field": "role"})
	}

	updated, err := s.store.UpdateUser(ctx, userID, name, strings.TrimSpace(input.Email), role)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	}
	return map[string]any{"success": true}, nil
}
