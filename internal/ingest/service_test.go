package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/media"
	"github.com/your-org/encodeflow/pkg/storage/objectstore"
)

// fakeMediaClient records every call and lets tests inject failures and
// pre-existing assets.
type fakeMediaClient struct {
	calls          []string
	existingAssets map[string]bool
	collideOutputs bool
	uploadedBytes  []byte
	uploadedName   string

	loginErr  error
	uploadErr error
	submitErr error

	submittedJob     string
	submittedInput   string
	submittedOutputs []string
}

func (f *fakeMediaClient) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeMediaClient) Login(ctx context.Context) error {
	f.record("login")
	return f.loginErr
}

func (f *fakeMediaClient) CreateAsset(ctx context.Context, name, description string) (*media.Asset, error) {
	f.record("createAsset:" + name)
	return &media.Asset{Name: name, Description: description}, nil
}

func (f *fakeMediaClient) GetAsset(ctx context.Context, name string) (*media.Asset, error) {
	f.record("getAsset:" + name)
	if f.existingAssets[name] || (f.collideOutputs && strings.HasPrefix(name, "output-")) {
		return &media.Asset{Name: name}, nil
	}
	return nil, nil
}

func (f *fakeMediaClient) UploadContainerURL(ctx context.Context, assetName string, expiry time.Duration) (string, error) {
	f.record("uploadURL:" + assetName)
	return "https://store.example/" + assetName + "?sig=abc", nil
}

func (f *fakeMediaClient) UploadContent(ctx context.Context, url, fileName string, r io.Reader, size int64) error {
	f.record("upload:" + fileName)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploadedBytes = data
	f.uploadedName = fileName
	return nil
}

func (f *fakeMediaClient) GetOrCreateTransform(ctx context.Context, name string) (*media.Transform, error) {
	f.record("transform:" + name)
	return &media.Transform{Name: name}, nil
}

func (f *fakeMediaClient) SubmitJob(ctx context.Context, transformName, jobName, inputAssetName string, outputAssetNames []string) (*media.Job, error) {
	f.record("submitJob:" + jobName)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submittedJob = jobName
	f.submittedInput = inputAssetName
	f.submittedOutputs = outputAssetNames
	return &media.Job{Name: jobName, Transform: transformName}, nil
}

func (f *fakeMediaClient) PublishAsset(ctx context.Context, assetName, streamingPolicyName string) error {
	f.record("publish:" + assetName)
	return nil
}

type fakePublisher struct {
	events []string
	keys   []string
	err    error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, key, eventType string, payload any) error {
	f.events = append(f.events, eventType)
	f.keys = append(f.keys, key)
	return f.err
}

func newTestService(client *fakeMediaClient, producer EventPublisher) *Service {
	return NewService(Params{
		Media:           client,
		Producer:        producer,
		Logger:          zap.NewNop(),
		TransformName:   "Content Adaptive Multiple Bitrate MP4",
		UploadURLExpiry: time.Hour,
	})
}

func TestProcessBlobHappyPath(t *testing.T) {
	client := &fakeMediaClient{}
	producer := &fakePublisher{}
	svc := newTestService(client, producer)

	content := bytes.Repeat([]byte("x"), 500000)
	result, err := svc.ProcessBlob(context.Background(), bytes.NewReader(content), int64(len(content)), "movie.mp4")
	require.NoError(t, err)

	token := result.Token
	assert.Equal(t, "job-"+token, result.JobName)
	assert.Equal(t, "input-"+token, result.InputAsset)
	assert.Equal(t, "output-"+token, result.OutputAsset)

	assert.Equal(t, "job-"+token, client.submittedJob)
	assert.Equal(t, "input-"+token, client.submittedInput)
	assert.Equal(t, []string{"output-" + token}, client.submittedOutputs)

	assert.Equal(t, []string{
		"login",
		"createAsset:input-" + token,
		"uploadURL:input-" + token,
		"upload:movie.mp4",
		"getAsset:output-" + token,
		"createAsset:output-" + token,
		"transform:Content Adaptive Multiple Bitrate MP4",
		"submitJob:job-" + token,
	}, client.calls)

	assert.Equal(t, content, client.uploadedBytes)
	assert.Equal(t, "movie.mp4", client.uploadedName)

	require.Equal(t, []string{EventTypeJobSubmitted}, producer.events)
	assert.Equal(t, []string{"job-" + token}, producer.keys)
}

func TestProcessBlobOutputNameCollision(t *testing.T) {
	client := &fakeMediaClient{collideOutputs: true}
	svc := newTestService(client, nil)

	result, err := svc.ProcessBlob(context.Background(), strings.NewReader("data"), 4, "Movie.MP4")
	require.NoError(t, err)

	assert.NotEqual(t, "output-"+result.Token, result.OutputAsset, "collided name must not be reused")
	assert.Equal(t, strings.ToLower(result.OutputAsset), result.OutputAsset)
	assert.True(t, strings.HasPrefix(result.OutputAsset, "movie-"), "got %q", result.OutputAsset)
	assert.Equal(t, []string{result.OutputAsset}, client.submittedOutputs)
}

func TestProcessBlobRejectsInvalidInput(t *testing.T) {
	svc := newTestService(&fakeMediaClient{}, nil)

	_, err := svc.ProcessBlob(context.Background(), strings.NewReader(""), 0, "movie.mp4")
	require.Error(t, err)

	_, err = svc.ProcessBlob(context.Background(), strings.NewReader("x"), 1, "")
	require.Error(t, err)
}

func TestProcessBlobUploadFailurePropagates(t *testing.T) {
	client := &fakeMediaClient{uploadErr: errors.New("container unreachable")}
	svc := newTestService(client, nil)

	_, err := svc.ProcessBlob(context.Background(), strings.NewReader("data"), 4, "movie.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload content")

	for _, call := range client.calls {
		assert.False(t, strings.HasPrefix(call, "submitJob:"), "no job may be submitted after a failed upload")
	}
}

func TestProcessBlobSubmitFailurePropagates(t *testing.T) {
	client := &fakeMediaClient{submitErr: fmt.Errorf("quota exceeded")}
	producer := &fakePublisher{}
	svc := newTestService(client, producer)

	_, err := svc.ProcessBlob(context.Background(), strings.NewReader("data"), 4, "movie.mp4")
	require.Error(t, err)
	assert.Empty(t, producer.events, "no lifecycle event for a failed submission")
}

func TestProcessBlobLifecyclePublishFailureIsNotFatal(t *testing.T) {
	client := &fakeMediaClient{}
	producer := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(client, producer)

	_, err := svc.ProcessBlob(context.Background(), strings.NewReader("data"), 4, "movie.mp4")
	require.NoError(t, err)
}

type fakeStore struct {
	objects map[string]string
}

func (f *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, objectstore.ObjectInfo{}, fmt.Errorf("no such key %q", key)
	}
	info := objectstore.ObjectInfo{Key: key, Size: int64(len(content)), ContentType: "video/mp4"}
	return io.NopCloser(strings.NewReader(content)), info, nil
}

func (f *fakeStore) Close() error { return nil }

func TestProcessStoredBlob(t *testing.T) {
	client := &fakeMediaClient{}
	store := &fakeStore{objects: map[string]string{"inbox/movie.mp4": "binary video data"}}
	svc := NewService(Params{
		Media:           client,
		Store:           store,
		Logger:          zap.NewNop(),
		TransformName:   "Content Adaptive Multiple Bitrate MP4",
		UploadURLExpiry: time.Hour,
	})

	result, err := svc.ProcessStoredBlob(context.Background(), "inbox/movie.mp4")
	require.NoError(t, err)
	assert.Equal(t, "job-"+result.Token, client.submittedJob)
	assert.Equal(t, []byte("binary video data"), client.uploadedBytes)
}

func TestProcessStoredBlobMissingKey(t *testing.T) {
	svc := NewService(Params{
		Media:  &fakeMediaClient{},
		Store:  &fakeStore{objects: map[string]string{}},
		Logger: zap.NewNop(),
	})

	_, err := svc.ProcessStoredBlob(context.Background(), "inbox/missing.mp4")
	require.Error(t, err)
}
