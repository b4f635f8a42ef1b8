package vision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
)

func writeImage(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("\x89PNG fake"), 0o644))
	return p
}

func TestService_ImageRoundTrip(t *testing.T) {
	var got *visionpb.BatchAnnotateImagesRequest
	svc := newService(func(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		got = req
		return &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{
				FullTextAnnotation: &visionpb.TextAnnotation{Text: "Handwritten\nessay"},
			}},
		}, nil
	}, nil, core.NopLogger{})

	ctx := context.Background()
	handle, err := svc.Upload(ctx, writeImage(t, "scan.JPG"))
	require.NoError(t, err)
	require.Len(t, got.Requests, 1)
	assert.Equal(t, []byte("\x89PNG fake"), got.Requests[0].Image.Content)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, got.Requests[0].Features[0].Type)

	status, err := svc.Status(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, extract.StatusProcessed, status)

	text, err := svc.Retrieve(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "Handwritten\nessay", text)

	_, err = svc.Retrieve(ctx, handle)
	assert.True(t, core.IsNotFound(err))
	assert.NoError(t, svc.Close())
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	failing := newService(func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Code: 3, Message: "bad image data"}}},
		}, nil
	}, nil, core.NopLogger{})

	_, err := failing.Upload(ctx, writeImage(t, "essay.pdf"))
	assert.Equal(t, extract.ErrUnsupported, errors.Cause(err))

	_, err = failing.Upload(ctx, writeImage(t, "scan.png"))
	assert.Equal(t, extract.ErrOCRFailed, errors.Cause(err))

	_, err = failing.Status(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))
}

func TestService_PDFFallsBackToTextLayer(t *testing.T) {
	calls := 0
	svc := newService(func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		calls++
		return &visionpb.BatchAnnotateImagesResponse{}, nil
	}, nil, core.NopLogger{})
	e := extract.New(svc, core.NopLogger{}, extract.DefaultOptions())

	// not a real PDF: the text layer reader fails and extraction yields ""
	assert.Equal(t, "", e.Extract(context.Background(), writeImage(t, "essay.pdf")))
	assert.Zero(t, calls)
}
