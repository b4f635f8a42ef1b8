// Package vision recognizes text in images with Google Cloud Vision.
package vision

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
)

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// Service runs DOCUMENT_TEXT_DETECTION synchronously on upload.
// Each upload is exposed as a job that is already processed.
type Service struct {
	annotate annotateFunc
	close    func() error
	logger   core.Logger

	mu    sync.Mutex
	texts map[string]string
}

var _ extract.OCRService = (*Service)(nil)

// NewService dials the Vision API. credentialsFile may be empty to use the default application credentials.
func NewService(ctx context.Context, credentialsFile string, logger core.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating vision client")
	}
	annotate := func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return client.BatchAnnotateImages(ctx, req)
	}
	return newService(annotate, client.Close, logger), nil
}

func newService(annotate annotateFunc, closeFn func() error, logger core.Logger) *Service {
	return &Service{
		annotate: annotate,
		close:    closeFn,
		logger:   logger.With("client", "vision"),
		texts:    make(map[string]string),
	}
}

func (s *Service) Upload(ctx context.Context, path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".jpg", ".jpeg":
	default:
		// multi-page documents need the async GCS API
		return "", errors.Wrapf(extract.ErrUnsupported, "vision: %s", ext)
	}

	img, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "reading image")
	}
	text, err := s.detect(ctx, img)
	if err != nil {
		return "", err
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.texts[handle] = text
	s.mu.Unlock()
	return handle, nil
}

func (s *Service) Status(_ context.Context, handle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.texts[handle]; !ok {
		return "", errors.Wrapf(core.ErrNotFound, "vision job %s", handle)
	}
	return extract.StatusProcessed, nil
}

// Retrieve returns the text of a job and forgets it.
func (s *Service) Retrieve(_ context.Context, handle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.texts[handle]
	if !ok {
		return "", errors.Wrapf(core.ErrNotFound, "vision job %s", handle)
	}
	delete(s.texts, handle)
	return text, nil
}

func (s *Service) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *Service) detect(ctx context.Context, img []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		}},
	}
	resp, err := s.annotate(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "vision annotate")
	}
	if resp == nil || len(resp.Responses) == 0 {
		return "", errors.New("vision: empty response")
	}
	r := resp.Responses[0]
	if r.GetError() != nil && r.GetError().GetMessage() != "" {
		return "", errors.Wrapf(extract.ErrOCRFailed, "vision: %s", r.GetError().GetMessage())
	}
	if fta := r.GetFullTextAnnotation(); fta != nil {
		return fta.GetText(), nil
	}
	s.logger.Debug("vision found no text")
	return "", nil
}
