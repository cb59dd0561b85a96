package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pixiv_mirror/internal/domain"
	"pixiv_mirror/internal/pipeline/mocks"
)

type UploadCoordinatorTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	blobs *mocks.MockBlobStore
	index *mocks.MockIndexService

	uploader *UploadCoordinator
	post     domain.Post
}

func (s *UploadCoordinatorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.blobs = mocks.NewMockBlobStore(s.ctrl)
	s.index = mocks.NewMockIndexService(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.uploader = NewUploadCoordinator(s.blobs, s.index, logger)

	s.post = domain.Post{
		ID:      31,
		Title:   "work",
		Caption: "caption",
		Author:  "author",
		Tags:    []string{"a", "b"},
	}
}

func (s *UploadCoordinatorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestUploadCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(UploadCoordinatorTestSuite))
}

func (s *UploadCoordinatorTestSuite) TestSuccess() {
	ctx := context.Background()

	s.blobs.EXPECT().Upload(ctx, "/staging/31_p0.thumbnail.png").Return("c0de", nil)
	s.blobs.EXPECT().PublicURL("c0de").Return("https://files/c0de")
	s.index.EXPECT().AddPost(ctx,
		"https://img/31_p0.png",
		"https://files/c0de",
		[]string{"a", "b", "author"},
		"work",
		"caption",
	).Return(int64(99), nil)

	id, err := s.uploader.Upload(ctx, "/staging/31_p0.thumbnail.png", "https://img/31_p0.png", s.post)
	s.NoError(err)
	s.EqualValues(99, id)
}

func (s *UploadCoordinatorTestSuite) TestBlobStoreFailure() {
	ctx := context.Background()

	s.blobs.EXPECT().Upload(ctx, "/staging/x.png").Return("", errors.New("code 3"))

	_, err := s.uploader.Upload(ctx, "/staging/x.png", "https://img/x.png", s.post)
	s.ErrorIs(err, domain.ErrUploadFailure)
}

func (s *UploadCoordinatorTestSuite) TestIndexFailure() {
	ctx := context.Background()

	s.blobs.EXPECT().Upload(ctx, "/staging/x.png").Return("c0de", nil)
	s.blobs.EXPECT().PublicURL("c0de").Return("https://files/c0de")
	s.index.EXPECT().AddPost(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("code 5"))

	_, err := s.uploader.Upload(ctx, "/staging/x.png", "https://img/x.png", s.post)
	s.ErrorIs(err, domain.ErrPostProcessing)
}
