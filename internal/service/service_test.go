package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"photomark/internal/model"
)

// CREATE - SUCCESS
func TestJobService_Create_OK(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepo{
		createFn: func(ctx context.Context, j *model.Job) error {
			require.NotEmpty(t, j.UID)
			require.Equal(t, model.StatusCreated, j.Status)
			require.Len(t, j.SourceKeys, 2)
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			require.True(t, strings.HasPrefix(key, "sources/"))
			return nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}

	svc := JobService{
		repo:         repo,
		storage:      storage,
		publisher:    pub,
		srcKeyPrefix: "sources/",
	}

	job, err := svc.Create(ctx, validCreateData())
	require.NoError(t, err)
	require.NotNil(t, job)
}

// CREATE - DUPLICATE SOURCE NAMES SUPPRESSED
func TestJobService_Create_DuplicateSources(t *testing.T) {
	puts := 0

	repo := &mockRepo{
		createFn: func(ctx context.Context, j *model.Job) error {
			require.Len(t, j.SourceKeys, 1)
			return nil
		},
	}
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			puts++
			return nil
		},
	}
	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error { return nil },
	}

	svc := JobService{repo: repo, storage: storage, publisher: pub, srcKeyPrefix: "sources/"}

	data := validCreateData()
	data.Sources = []model.UploadedFile{
		{File: newFakeFile("a"), Name: "photo.jpg", ContentType: model.JPEG, Size: 1},
		{File: newFakeFile("b"), Name: "photo.jpg", ContentType: model.JPEG, Size: 1},
	}

	_, err := svc.Create(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 1, puts)
}

// CREATE - VALIDATION FAIL
func TestJobService_Create_InvalidInput(t *testing.T) {
	svc := JobService{}

	_, err := svc.Create(context.Background(), &model.JobCreateData{})
	require.ErrorIs(t, err, model.ErrIncorrectVariant)
}

// CREATE - TEXT VARIANT WITHOUT TEXT
func TestJobService_Create_EmptyText(t *testing.T) {
	svc := JobService{}

	data := validCreateData()
	data.Spec.Text.Text = "   "

	_, err := svc.Create(context.Background(), data)
	require.ErrorIs(t, err, model.ErrEmptyText)
}

// CREATE - IMAGE VARIANT WITHOUT ASSET UPLOAD
func TestJobService_Create_NoMarkUpload(t *testing.T) {
	svc := JobService{}

	data := validCreateData()
	data.Spec.Variant = model.VariantImage
	data.Spec.Text = nil
	data.Spec.Image = &model.ImagePayload{}

	_, err := svc.Create(context.Background(), data)
	require.ErrorIs(t, err, model.ErrEmptyMarkImage)
}

// CREATE - STORAGE PUT FAIL
func TestJobService_Create_StorageError(t *testing.T) {
	repo := &mockRepo{}
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return errors.New("storage is down")
		},
	}

	svc := JobService{
		repo:         repo,
		storage:      storage,
		srcKeyPrefix: "sources/",
	}

	_, err := svc.Create(context.Background(), validCreateData())
	require.ErrorIs(t, err, model.ErrCommon500)
}

// GETLIST - SUCCESS
func TestJobService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
			require.Equal(t, 1, req.Page)
			return []model.Job{{UID: uuid.New()}}, nil
		},
	}

	svc := JobService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// GET - SUCCESS
func TestJobService_Get_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Job, error) {
			return &model.Job{UID: uuid.MustParse(uid)}, nil
		},
	}

	svc := JobService{repo: repo}

	job, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, job.UID.String())
}

// GET - FAIL
func TestJobService_Get_InvalidID(t *testing.T) {
	svc := JobService{}
	_, err := svc.Get(context.Background(), "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// LOADRESULT - FAIL
func TestJobService_LoadResult_NotReady(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{Status: model.StatusCreated}, nil
		},
	}

	svc := JobService{repo: repo}

	_, _, err := svc.LoadResult(context.Background(), uuid.New().String(), "photo.jpg")
	require.ErrorIs(t, err, model.ErrResultNotReady)
}

// LOADRESULT - SUCCESS - filename is sanitized into the results prefix
func TestJobService_LoadResult_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{Status: model.StatusDone}, nil
		},
	}
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			require.Equal(t, "results/"+id+"/photo.jpg", key)
			return io.NopCloser(bytes.NewReader([]byte("img"))), model.JPEG, nil
		},
	}

	svc := JobService{repo: repo, storage: storage, resultKeyPrefix: "results/"}

	rc, ctype, err := svc.LoadResult(context.Background(), id, "../photo.jpg")
	require.NoError(t, err)
	require.Equal(t, model.JPEG, ctype)
	require.NoError(t, rc.Close())
}

// DELETE - FAIL - NOT FOUND
func TestJobService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return nil, model.ErrJobNotFound
		},
	}

	svc := JobService{repo: repo}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

// DELETE - SUCCESS - sweeps source and result prefixes
func TestJobService_Delete_OK(t *testing.T) {
	id := uuid.New().String()
	var swept []string

	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{UID: uuid.MustParse(id), Status: model.StatusDone}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	storage := &mockStorage{
		deletePrefixFn: func(ctx context.Context, prefix string) error {
			swept = append(swept, prefix)
			return nil
		},
	}

	svc := JobService{repo: repo, storage: storage, srcKeyPrefix: "sources/", resultKeyPrefix: "results/"}

	err := svc.Delete(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []string{"sources/" + id + "/", "results/" + id + "/"}, swept)
}

// UPDATESTATUS - SUCCESS
func TestJobService_UpdateStatus_OK(t *testing.T) {
	repo := &mockRepo{
		updateStatusFn: func(ctx context.Context, id string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			return nil
		},
	}

	svc := JobService{repo: repo}
	err := svc.UpdateStatus(context.Background(), uuid.New().String(), model.StatusDone)
	require.NoError(t, err)
}

// SAVERESULT - SUCCESS
func TestJobService_SaveResult_OK(t *testing.T) {
	repo := &mockRepo{
		saveResultFn: func(ctx context.Context, j *model.Job) error {
			require.NotNil(t, j.UpdatedAt)
			return nil
		},
	}

	svc := JobService{repo: repo}
	err := svc.SaveResult(context.Background(), &model.Job{})
	require.NoError(t, err)
}

// REVIVEORPHANS - SUCCESS
func TestJobService_ReviveOrphans(t *testing.T) {
	called := 0

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			return []string{"id1", "id2"}, nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			called++
			return nil
		},
	}

	svc := JobService{repo: repo, publisher: pub}
	svc.ReviveOrphans(context.Background(), 10)

	require.Equal(t, 2, called)
}

// TEMPLATES - SAVE VALIDATES THE SPEC
func TestJobService_SaveTemplate(t *testing.T) {
	tplRepo := &mockTplRepo{
		saveFn: func(ctx context.Context, tpl *model.Template) error {
			require.Equal(t, "draft", tpl.Name)
			return nil
		},
	}

	svc := JobService{templates: tplRepo}

	tpl, err := svc.SaveTemplate(context.Background(), &model.Template{
		Name: " draft ",
		Spec: validCreateData().Spec,
	})
	require.NoError(t, err)
	require.Equal(t, "draft", tpl.Name)

	_, err = svc.SaveTemplate(context.Background(), &model.Template{Name: "bad"})
	require.ErrorIs(t, err, model.ErrIncorrectVariant)
}

// TEMPLATES - GET NOT FOUND PASSES THROUGH
func TestJobService_GetTemplate_NotFound(t *testing.T) {
	tplRepo := &mockTplRepo{
		getFn: func(ctx context.Context, name string) (*model.Template, error) {
			return nil, model.ErrTemplateNotFound
		},
	}

	svc := JobService{templates: tplRepo}
	_, err := svc.GetTemplate(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrTemplateNotFound)
}

// helper for making a fake upload
func newFakeFile(content string) multipart.File {
	return &fakeMultipartFile{
		Reader: bytes.NewReader([]byte(content)),
	}
}

// helper for generating a valid JobCreateData
func validCreateData() *model.JobCreateData {
	return &model.JobCreateData{
		Spec: model.WatermarkSpec{
			Variant: model.VariantText,
			Text: &model.TextPayload{
				Text:    "draft",
				Opacity: 50,
			},
			Position: model.PositionSpec{Anchor: model.AnchorBottomRight},
		},
		Rule: model.ExportRule{Format: model.FormatPNG},
		Sources: []model.UploadedFile{
			{File: newFakeFile("image-bytes"), Name: "a.jpg", ContentType: model.JPEG, Size: int64(len("image-bytes"))},
			{File: newFakeFile("image-bytes"), Name: "b.png", ContentType: model.PNG, Size: int64(len("image-bytes"))},
		},
	}
}
