package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"atelier/api/internal/config"
	"atelier/api/internal/rbac"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
)

type fakeStore struct {
	getUserByIDFn        func(context.Context, string) (store.User, error)
	listUsersFn          func(context.Context, int) ([]store.User, error)
	updateUserFn         func(context.Context, string, string, string, string) (bool, error)
	insertPostFn         func(context.Context, store.Post) error
	listPostsFn          func(context.Context) ([]store.Post, error)
	getPostFn            func(context.Context, string) (store.Post, error)
	deletePostFn         func(context.Context, string) (bool, error)
	insertProjectFn      func(context.Context, store.Project) error
	listProjectsFn       func(context.Context) ([]store.Project, error)
	getProjectFn         func(context.Context, string) (store.Project, error)
	deleteProjectFn      func(context.Context, string) (bool, error)
	insertTaskFn         func(context.Context, store.Task) error
	listTasksByProjectFn func(context.Context, string) ([]store.Task, error)
	getTaskFn            func(context.Context, string) (store.Task, error)
	taskCountByProjectFn func(context.Context, string) (int, error)
	updateTaskFn         func(context.Context, string, string, string, int) (bool, error)
	updateTaskStatusFn   func(context.Context, string, string) (bool, error)
	deleteTaskFn         func(context.Context, string) (bool, error)
	insertCommentFn      func(context.Context, store.Comment) error
	listCommentsByPostFn func(context.Context, string) ([]store.Comment, error)
	insertImageFn        func(context.Context, store.Image) error
	listImagesFn         func(context.Context) ([]store.Image, error)
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{ID: id, Name: "Someone", Role: "user"}, nil
}
func (f *fakeStore) ListUsers(ctx context.Context, limit int) ([]store.User, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx, limit)
	}
	return nil, nil
}
func (f *fakeStore) UpdateUser(ctx context.Context, id, name, email, role string) (bool, error) {
	if f.updateUserFn != nil {
		return f.updateUserFn(ctx, id, name, email, role)
	}
	return true, nil
}
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(context.Context, string) (bool, error) {
	return false, nil
}
func (f *fakeStore) InsertPost(ctx context.Context, post store.Post) error {
	if f.insertPostFn != nil {
		return f.insertPostFn(ctx, post)
	}
	return nil
}
func (f *fakeStore) ListPosts(ctx context.Context) ([]store.Post, error) {
	if f.listPostsFn != nil {
		return f.listPostsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetPost(ctx context.Context, id string) (store.Post, error) {
	if f.getPostFn != nil {
		return f.getPostFn(ctx, id)
	}
	return store.Post{}, sql.ErrNoRows
}
func (f *fakeStore) DeletePost(ctx context.Context, id string) (bool, error) {
	if f.deletePostFn != nil {
		return f.deletePostFn(ctx, id)
	}
	return true, nil
}
func (f *fakeStore) InsertProject(ctx context.Context, project store.Project) error {
	if f.insertProjectFn != nil {
		return f.insertProjectFn(ctx, project)
	}
	return nil
}
func (f *fakeStore) ListProjects(ctx context.Context) ([]store.Project, error) {
	if f.listProjectsFn != nil {
		return f.listProjectsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetProject(ctx context.Context, id string) (store.Project, error) {
	if f.getProjectFn != nil {
		return f.getProjectFn(ctx, id)
	}
	return store.Project{}, sql.ErrNoRows
}
func (f *fakeStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	if f.deleteProjectFn != nil {
		return f.deleteProjectFn(ctx, id)
	}
	return true, nil
}
func (f *fakeStore) InsertTask(ctx context.Context, task store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, task)
	}
	return nil
}
func (f *fakeStore) ListTasksByProject(ctx context.Context, projectID string) ([]store.Task, error) {
	if f.listTasksByProjectFn != nil {
		return f.listTasksByProjectFn(ctx, projectID)
	}
	return nil, nil
}
func (f *fakeStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, id)
	}
	return store.Task{}, sql.ErrNoRows
}
func (f *fakeStore) TaskCountByProject(ctx context.Context, projectID string) (int, error) {
	if f.taskCountByProjectFn != nil {
		return f.taskCountByProjectFn(ctx, projectID)
	}
	return 0, nil
}
func (f *fakeStore) UpdateTask(ctx context.Context, id, title, description string, order int) (bool, error) {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, id, title, description, order)
	}
	return true, nil
}
func (f *fakeStore) UpdateTaskStatus(ctx context.Context, id, status string) (bool, error) {
	if f.updateTaskStatusFn != nil {
		return f.updateTaskStatusFn(ctx, id, status)
	}
	return true, nil
}
func (f *fakeStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	if f.deleteTaskFn != nil {
		return f.deleteTaskFn(ctx, id)
	}
	return true, nil
}
func (f *fakeStore) InsertComment(ctx context.Context, comment store.Comment) error {
	if f.insertCommentFn != nil {
		return f.insertCommentFn(ctx, comment)
	}
	return nil
}
func (f *fakeStore) ListCommentsByPost(ctx context.Context, postID string) ([]store.Comment, error) {
	if f.listCommentsByPostFn != nil {
		return f.listCommentsByPostFn(ctx, postID)
	}
	return nil, nil
}
func (f *fakeStore) InsertImage(ctx context.Context, image store.Image) error {
	if f.insertImageFn != nil {
		return f.insertImageFn(ctx, image)
	}
	return nil
}
func (f *fakeStore) ListImages(ctx context.Context) ([]store.Image, error) {
	if f.listImagesFn != nil {
		return f.listImagesFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeSessions struct {
	saved   map[string]string
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]string)}
}

func (f *fakeSessions) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	f.saved[tokenHash] = userID
	return nil
}
func (f *fakeSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	userID, ok := f.saved[tokenHash]
	if !ok {
		return store.User{}, errors.New("token not found or expired")
	}
	return store.User{ID: userID}, nil
}
func (f *fakeSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	delete(f.saved, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

type fakeSearch struct {
	indexed  []search.PostRecord
	removed  []string
	response search.Response
}

func (f *fakeSearch) SearchPosts(ctx context.Context, query string, limit int) (search.Response, error) {
	return f.response, nil
}
func (f *fakeSearch) IndexPost(rec search.PostRecord) { f.indexed = append(f.indexed, rec) }
func (f *fakeSearch) RemovePost(id string)            { f.removed = append(f.removed, id) }

type fakeBlobs struct {
	deleted  []string
	resolved map[string]string
	uploads  int
}

func (f *fakeBlobs) GenerateUploadURL(ctx context.Context) (string, string, error) {
	f.uploads++
	return "blob_new", "https://blobs.example/upload/blob_new", nil
}
func (f *fakeBlobs) ResolveURL(ctx context.Context, storageID string) (string, error) {
	if f.resolved == nil {
		return "", nil
	}
	return f.resolved[storageID], nil
}
func (f *fakeBlobs) Delete(ctx context.Context, storageID string) error {
	f.deleted = append(f.deleted, storageID)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func newTestService(fs *fakeStore, blobs *fakeBlobs, srch *fakeSearch) *Service {
	if blobs == nil {
		blobs = &fakeBlobs{}
	}
	if srch == nil {
		srch = &fakeSearch{}
	}
	return New(testConfig(), fs, newFakeSessions(), srch, blobs, nil, nil, nil)
}

func adminSession() Session {
	return Session{UserID: "user_admin", UserName: "Admin", Role: rbac.RoleAdmin}
}

func userSession(id, name string) Session {
	return Session{UserID: id, UserName: name, Role: rbac.RoleUser}
}

func TestCreatePostRequiresStaff(t *testing.T) {
	ctx := context.Background()
	inserted := false
	fs := &fakeStore{
		insertPostFn: func(context.Context, store.Post) error {
			inserted = true
			return nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.CreatePost(ctx, userSession("user_1", "Someone"), CreatePostInput{
		Title: "A valid title",
		Body:  "a body long enough to pass",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if inserted {
		t.Error("post must not be inserted when the actor lacks the role")
	}

	if _, err := svc.CreatePost(ctx, adminSession(), CreatePostInput{
		Title: "A valid title",
		Body:  "a body long enough to pass",
	}); err != nil {
		t.Fatalf("admin create should succeed: %v", err)
	}
}

func TestCreatePostValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	cases := []struct {
		name  string
		input CreatePostInput
	}{
		{"short title", CreatePostInput{Title: "ab", Body: "a body long enough"}},
		{"long title", CreatePostInput{Title: "this title is way too long to be accepted by the validator", Body: "a body long enough"}},
		{"short body", CreatePostInput{Title: "Fine title", Body: "too short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, adminSession(), tc.input)
			var domainErr *DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestCreatePostReclaimsBlobsOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	blobs := &fakeBlobs{}
	fs := &fakeStore{
		insertPostFn: func(context.Context, store.Post) error {
			return errors.New("db down")
		},
	}
	svc := newTestService(fs, blobs, nil)

	_, err := svc.CreatePost(ctx, adminSession(), CreatePostInput{
		Title:    "A valid title",
		Body:     "a body long enough to pass",
		ImageIDs: []string{"blob_a", "blob_b"},
	})
	if err == nil {
		t.Fatal("expected insert error to propagate")
	}
	if len(blobs.deleted) != 2 {
		t.Fatalf("expected 2 reclaimed blobs, got %v", blobs.deleted)
	}
}

func TestCreatePostIndexesForSearch(t *testing.T) {
	ctx := context.Background()
	srch := &fakeSearch{}
	svc := newTestService(&fakeStore{}, nil, srch)

	payload, err := svc.CreatePost(ctx, adminSession(), CreatePostInput{
		Title: "Search me",
		Body:  "a body long enough to pass",
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if len(srch.indexed) != 1 {
		t.Fatalf("expected 1 indexed record, got %d", len(srch.indexed))
	}
	if srch.indexed[0].ID != payload["id"] {
		t.Errorf("indexed record id %q does not match created post id %v", srch.indexed[0].ID, payload["id"])
	}
}

func TestDeletePostCascadesBlobsAndIndex(t *testing.T) {
	ctx := context.Background()
	blobs := &fakeBlobs{}
	srch := &fakeSearch{}
	fs := &fakeStore{
		getPostFn: func(ctx context.Context, id string) (store.Post, error) {
			return store.Post{ID: id, AuthorID: "user_author", ImageIDs: []string{"blob_1", "blob_2", "blob_3"}}, nil
		},
	}
	svc := newTestService(fs, blobs, srch)

	if _, err := svc.DeletePost(ctx, userSession("user_author", "Author"), "post_1"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if len(blobs.deleted) != 3 {
		t.Errorf("expected all 3 blobs deleted, got %v", blobs.deleted)
	}
	if len(srch.removed) != 1 || srch.removed[0] != "post_1" {
		t.Errorf("expected post removed from index, got %v", srch.removed)
	}
}

func TestDeletePostIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getPostFn: func(context.Context, string) (store.Post, error) {
			return store.Post{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs, nil, nil)

	for i := 0; i < 2; i++ {
		payload, err := svc.DeletePost(ctx, userSession("user_1", "Someone"), "post_gone")
		if err != nil {
			t.Fatalf("delete %d should be a no-op success: %v", i+1, err)
		}
		if payload["success"] != true {
			t.Fatalf("delete %d expected success marker", i+1)
		}
	}
}

func TestDeletePostAuthorization(t *testing.T) {
	ctx := context.Background()
	deleted := false
	fs := &fakeStore{
		getPostFn: func(ctx context.Context, id string) (store.Post, error) {
			return store.Post{ID: id, AuthorID: "user_author"}, nil
		},
		deletePostFn: func(context.Context, string) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.DeletePost(ctx, userSession("user_other", "Other"), "post_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if deleted {
		t.Error("post must remain present after a forbidden delete")
	}

	if _, err := svc.DeletePost(ctx, adminSession(), "post_1"); err != nil {
		t.Fatalf("admin delete should succeed: %v", err)
	}
	if !deleted {
		t.Error("admin delete should reach the store")
	}
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()

	var storedProject store.Project
	projectDeleted := false
	fs := &fakeStore{
		insertProjectFn: func(ctx context.Context, project store.Project) error {
			storedProject = project
			return nil
		},
		listProjectsFn: func(context.Context) ([]store.Project, error) {
			if projectDeleted {
				return nil, nil
			}
			return []store.Project{storedProject}, nil
		},
		getProjectFn: func(ctx context.Context, id string) (store.Project, error) {
			if projectDeleted || storedProject.ID != id {
				return store.Project{}, sql.ErrNoRows
			}
			return storedProject, nil
		},
		deleteProjectFn: func(context.Context, string) (bool, error) {
			projectDeleted = true
			return true, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	u1 := userSession("user_1", "First User")
	created, err := svc.CreateProject(ctx, u1, CreateProjectInput{
		Title:       "Roadmap",
		Description: "plans for the next quarter",
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	projectID, _ := created["id"].(string)
	if projectID == "" {
		t.Fatal("expected a project id")
	}

	projects, err := svc.GetProjects(ctx)
	if err != nil {
		t.Fatalf("GetProjects failed: %v", err)
	}
	if len(projects) != 1 || projects[0]["authorId"] != "user_1" {
		t.Fatalf("expected project owned by user_1, got %v", projects)
	}

	u2 := userSession("user_2", "Second User")
	_, err = svc.DeleteProject(ctx, u2, projectID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for non-owner, got %v", err)
	}
	if projectDeleted {
		t.Fatal("project must survive a forbidden delete")
	}

	if _, err := svc.DeleteProject(ctx, u1, projectID); err != nil {
		t.Fatalf("owner delete should succeed: %v", err)
	}
	projects, err = svc.GetProjects(ctx)
	if err != nil {
		t.Fatalf("GetProjects failed: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected project gone, got %v", projects)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.CreateProject(ctx, userSession("user_1", "Someone"), CreateProjectInput{
		Title:       "OK",
		Description: "a long enough description",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for short title, got %v", err)
	}

	_, err = svc.CreateProject(ctx, userSession("user_1", "Someone"), CreateProjectInput{
		Title:       "Fine title",
		Description: "short",
	})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for short description, got %v", err)
	}
}

func TestDeleteProjectDeletesBlob(t *testing.T) {
	ctx := context.Background()
	blobs := &fakeBlobs{}
	fs := &fakeStore{
		getProjectFn: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id, AuthorID: "user_1", ImageID: "blob_cover"}, nil
		},
	}
	svc := newTestService(fs, blobs, nil)

	if _, err := svc.DeleteProject(ctx, userSession("user_1", "Someone"), "proj_1"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "blob_cover" {
		t.Errorf("expected cover blob deleted, got %v", blobs.deleted)
	}
}

func TestCreateTaskAssignsNextOrder(t *testing.T) {
	ctx := context.Background()
	var created store.Task
	fs := &fakeStore{
		getProjectFn: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id}, nil
		},
		taskCountByProjectFn: func(context.Context, string) (int, error) {
			return 4, nil
		},
		insertTaskFn: func(ctx context.Context, task store.Task) error {
			created = task
			return nil
		},
	}
	svc := newTestService(fs, nil, nil)

	if _, err := svc.CreateTask(ctx, userSession("user_1", "Someone"), CreateTaskInput{
		Title:     "Ship it",
		ProjectID: "proj_1",
	}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.Order != 5 {
		t.Errorf("expected order 5 for the fifth task, got %d", created.Order)
	}
	if created.Status != "pending" {
		t.Errorf("expected new task status pending, got %q", created.Status)
	}
}

func TestCreateTaskUnknownProject(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.CreateTask(ctx, userSession("user_1", "Someone"), CreateTaskInput{
		Title:     "Orphan task",
		ProjectID: "proj_missing",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestTaskDescriptionLength(t *testing.T) {
	ctx := context.Background()
	inserted := false
	fs := &fakeStore{
		getProjectFn: func(ctx context.Context, id string) (store.Project, error) {
			return store.Project{ID: id}, nil
		},
		insertTaskFn: func(context.Context, store.Task) error {
			inserted = true
			return nil
		},
		getTaskFn: func(ctx context.Context, id string) (store.Task, error) {
			return store.Task{ID: id, AuthorID: "user_1", ProjectID: "proj_1", Order: 1}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.CreateTask(ctx, userSession("user_1", "Someone"), CreateTaskInput{
		Title:       "Ship it",
		Description: "short",
		ProjectID:   "proj_1",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for a short description, got %v", err)
	}
	if inserted {
		t.Error("task with a short description must not be stored")
	}

	// An absent description is fine, only a present one has a minimum.
	if _, err := svc.CreateTask(ctx, userSession("user_1", "Someone"), CreateTaskInput{
		Title:     "Ship it",
		ProjectID: "proj_1",
	}); err != nil {
		t.Fatalf("CreateTask without description failed: %v", err)
	}

	_, err = svc.UpdateTask(ctx, userSession("user_1", "Someone"), "task_1", UpdateTaskInput{
		Title:       "New title",
		Description: "short",
	})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR on update with a short description, got %v", err)
	}
}

func TestUpdateTaskCannotMoveProjects(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getTaskFn: func(ctx context.Context, id string) (store.Task, error) {
			return store.Task{ID: id, AuthorID: "user_1", ProjectID: "proj_1", Order: 2}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.UpdateTask(ctx, userSession("user_1", "Someone"), "task_1", UpdateTaskInput{
		Title:     "New title",
		ProjectID: "proj_other",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestDeleteTaskAppliesUniformPredicate(t *testing.T) {
	ctx := context.Background()
	deleted := false
	fs := &fakeStore{
		getTaskFn: func(ctx context.Context, id string) (store.Task, error) {
			return store.Task{ID: id, AuthorID: "user_author"}, nil
		},
		deleteTaskFn: func(context.Context, string) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.DeleteTask(ctx, userSession("user_other", "Other"), "task_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for non-owner, got %v", err)
	}
	if deleted {
		t.Error("task must not be deleted by a non-owner")
	}

	if _, err := svc.DeleteTask(ctx, userSession("user_author", "Author"), "task_1"); err != nil {
		t.Fatalf("author delete should succeed: %v", err)
	}
	if !deleted {
		t.Error("author delete should reach the store")
	}
}

func TestDeleteTaskIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	payload, err := svc.DeleteTask(ctx, userSession("user_1", "Someone"), "task_gone")
	if err != nil {
		t.Fatalf("deleting a missing task should succeed: %v", err)
	}
	if payload["success"] != true {
		t.Fatal("expected success marker")
	}
}

func TestUpdateTaskStatusValidation(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getTaskFn: func(ctx context.Context, id string) (store.Task, error) {
			return store.Task{ID: id, AuthorID: "user_1"}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.UpdateTaskStatus(ctx, userSession("user_1", "Someone"), "task_1", "archived")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for bad status, got %v", err)
	}

	for status := range allowedTaskStatuses {
		if _, err := svc.UpdateTaskStatus(ctx, userSession("user_1", "Someone"), "task_1", status); err != nil {
			t.Errorf("status %q should be accepted: %v", status, err)
		}
	}
}

func TestCreateCommentSnapshotsAuthorName(t *testing.T) {
	ctx := context.Background()
	var created store.Comment
	fs := &fakeStore{
		getPostFn: func(ctx context.Context, id string) (store.Post, error) {
			return store.Post{ID: id}, nil
		},
		insertCommentFn: func(ctx context.Context, comment store.Comment) error {
			created = comment
			return nil
		},
	}
	svc := newTestService(fs, nil, nil)

	if _, err := svc.CreateComment(ctx, userSession("user_1", "Original Name"), "post_1", CreateCommentInput{
		Body: "nice post",
	}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if created.AuthorName != "Original Name" {
		t.Errorf("expected author name snapshot, got %q", created.AuthorName)
	}
}

func TestCreateCommentMissingPost(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.CreateComment(ctx, userSession("user_1", "Someone"), "post_missing", CreateCommentInput{
		Body: "hello",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetPostsResolvesImageURLs(t *testing.T) {
	ctx := context.Background()
	blobs := &fakeBlobs{resolved: map[string]string{
		"blob_1": "https://cdn.example/blob_1",
	}}
	fs := &fakeStore{
		listPostsFn: func(context.Context) ([]store.Post, error) {
			return []store.Post{{ID: "post_1", Title: "Hi", ImageIDs: []string{"blob_1", "blob_missing"}}}, nil
		},
	}
	svc := newTestService(fs, blobs, nil)

	posts, err := svc.GetPosts(ctx)
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	urls, _ := posts[0]["imageUrls"].([]string)
	if len(urls) != 1 || urls[0] != "https://cdn.example/blob_1" {
		t.Errorf("expected only the resolvable URL, got %v", urls)
	}
}

func TestAdminEndpointsRequireStaff(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	var domainErr *DomainError
	if _, err := svc.ListUsers(ctx, userSession("user_1", "Someone"), 100); !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for ListUsers, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, userSession("user_1", "Someone"), "user_2", UpdateUserInput{
		Name: "New Name", Email: "x@example.com", Role: "admin",
	}); !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for UpdateUser, got %v", err)
	}
}

func TestUpdateUserValidatesRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.UpdateUser(ctx, adminSession(), "user_2", UpdateUserInput{
		Name: "Valid Name", Email: "x@example.com", Role: "superuser",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for bad role, got %v", err)
	}

	if _, err := svc.UpdateUser(ctx, adminSession(), "user_2", UpdateUserInput{
		Name: "Valid Name", Email: "x@example.com", Role: "owner",
	}); err != nil {
		t.Fatalf("valid role should be accepted: %v", err)
	}
}

func TestUpdateUserMissingUser(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		updateUserFn: func(context.Context, string, string, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.UpdateUser(ctx, adminSession(), "user_gone", UpdateUserInput{
		Name: "Valid Name", Email: "x@example.com", Role: "user",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getUserByIDFn: func(ctx context.Context, id string) (store.User, error) {
			return store.User{ID: id, Name: "Round Trip", Email: "rt@example.com", Role: "admin"}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	session, err := svc.CreateSession(ctx, "user_1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}

	parsed, err := svc.SessionFromToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	if parsed.UserID != "user_1" || parsed.Role != rbac.RoleAdmin {
		t.Errorf("unexpected session %+v", parsed)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getUserByIDFn: func(ctx context.Context, id string) (store.User, error) {
			return store.User{ID: id, Name: "Rotator", Role: "user"}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	first, err := svc.CreateSession(ctx, "user_1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh must rotate the refresh token")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
		t.Error("old refresh token must be revoked after rotation")
	}
}
