// Package service provides application business logic for the daily exchange.
package service

import (
	"context"
	"errors"
	"time"

	"onesong/internal/cache"
	"onesong/internal/middleware"
	"onesong/internal/models"
	"onesong/internal/observability"
	"onesong/internal/repository"
	"onesong/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// consumeRetries bounds how often the engine re-searches the pool after
// losing the consume race on an entry.
const consumeRetries = 3

// PostService implements the daily exchange matching engine and the
// received-post resolver. All multi-step mutations run through the injected
// unit of work; the read-side repositories operate outside transactions.
type PostService struct {
	uow          repository.UnitOfWork
	postRepo     repository.PostRepository
	exchangeRepo repository.ExchangeRepository
	genreRepo    repository.GenreRepository
	today        func() string
}

// CreatePostInput carries the validated fields of a daily submission.
// The first genre is conventionally the primary one; PrimaryGenreID must be
// among GenreIDs.
type CreatePostInput struct {
	UserID         uint
	Title          string
	Artist         string
	URL            string
	MusicBrainzID  *string
	CoverArtURL    *string
	PrimaryGenreID uint
	GenreIDs       []uint
	Comment        *string
}

// NewPostService returns a new PostService.
func NewPostService(
	uow repository.UnitOfWork,
	postRepo repository.PostRepository,
	exchangeRepo repository.ExchangeRepository,
	genreRepo repository.GenreRepository,
) *PostService {
	return &PostService{
		uow:          uow,
		postRepo:     postRepo,
		exchangeRepo: exchangeRepo,
		genreRepo:    genreRepo,
		today:        func() string { return time.Now().Format("2006-01-02") },
	}
}

// SetClock overrides the service's notion of "today". Intended for tests.
func (s *PostService) SetClock(today func() string) {
	s.today = today
}

// CanPost reports whether the user may still post today.
func (s *PostService) CanPost(ctx context.Context, userID uint) (bool, error) {
	posted, err := s.postRepo.HasPostedToday(ctx, userID, s.today())
	if err != nil {
		return false, err
	}
	return !posted, nil
}

func (s *PostService) validateCreatePost(ctx context.Context, in CreatePostInput) error {
	if in.Title == "" || len(in.Title) > 200 {
		return models.NewValidationError("Title is required and must be at most 200 characters")
	}
	if in.Artist == "" || len(in.Artist) > 200 {
		return models.NewValidationError("Artist is required and must be at most 200 characters")
	}
	if !validation.IsYouTubeURL(in.URL) {
		return models.NewValidationError("URL must be a YouTube URL (youtube.com or youtu.be)")
	}
	if in.CoverArtURL != nil && len(*in.CoverArtURL) > 500 {
		return models.NewValidationError("Cover art URL must be at most 500 characters")
	}
	if len(in.GenreIDs) < 1 || len(in.GenreIDs) > 3 {
		return models.NewValidationError("Between one and three genres must be selected")
	}

	primaryIncluded := false
	for _, id := range in.GenreIDs {
		if id == in.PrimaryGenreID {
			primaryIncluded = true
			break
		}
	}
	if !primaryIncluded {
		return models.NewValidationError("The primary genre must be among the selected genres")
	}

	genres, err := s.genreRepo.FindByIDs(ctx, in.GenreIDs)
	if err != nil {
		return err
	}
	if len(genres) != len(in.GenreIDs) {
		return models.NewValidationError("One or more selected genres do not exist")
	}
	return nil
}

// CreatePost runs the post-creation matching transaction:
//
//  1. create the track, the post, its genre tags and a fresh pool entry;
//  2. if another user is waiting and may receive this track, hand them the
//     brand-new post (consuming its own pool entry);
//  3. try to pair the poster with an existing pool entry, excluding their
//     own posts and every track they already received;
//  4. record the outcome as the poster's exchange for today, resolved or
//     waiting.
//
// Steps 2 and 3 consume disjoint entries: step 2 the new one, step 3 an
// existing one, so a single post can satisfy both a stranger's wait and the
// poster's own want in the same transaction.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (uint, error) {
	if err := s.validateCreatePost(ctx, in); err != nil {
		return 0, err
	}

	// Cheap precondition check; the unique index re-arbitrates inside the
	// transaction for concurrent submits.
	posted, err := s.postRepo.HasPostedToday(ctx, in.UserID, s.today())
	if err != nil {
		return 0, err
	}
	if posted {
		return 0, models.NewAlreadyPostedError()
	}

	span, ctx := observability.NewSpan(ctx, "exchange.create_post")
	defer span.End()
	span.AddAttributes(attribute.Int("user.id", int(in.UserID)))

	var postID uint
	matched := false
	err = s.uow.Do(ctx, func(r repository.TxRepos) error {
		today := s.today()

		track := &models.Track{
			Title:          in.Title,
			Artist:         in.Artist,
			URL:            in.URL,
			MusicBrainzID:  in.MusicBrainzID,
			CoverArtURL:    in.CoverArtURL,
			PrimaryGenreID: &in.PrimaryGenreID,
		}
		if err := r.Tracks.Create(ctx, track); err != nil {
			return err
		}

		post := &models.Post{
			UserID:   in.UserID,
			TrackID:  track.ID,
			PostDate: today,
			Comment:  in.Comment,
		}
		if err := r.Posts.Create(ctx, post); err != nil {
			if repository.IsUniqueViolation(err) {
				return models.NewAlreadyPostedError()
			}
			return err
		}
		if err := r.Posts.AttachGenres(ctx, post, in.GenreIDs); err != nil {
			return err
		}

		entry := &models.PoolEntry{PostID: post.ID}
		if err := r.PoolEntries.Create(ctx, entry); err != nil {
			return err
		}

		// Resolve someone else's wait with the brand-new post.
		waiting, err := r.Exchanges.FindWaiting(ctx, in.UserID, track.ID)
		if err != nil {
			return err
		}
		if waiting != nil {
			assignErr := r.Exchanges.AssignReceivedPost(ctx, waiting.ID, post.ID)
			switch {
			case assignErr == nil:
				if err := r.PoolEntries.MarkConsumed(ctx, entry.ID); err != nil {
					return err
				}
			case errors.Is(assignErr, repository.ErrExchangeResolved):
				// A concurrent transaction beat us to this exchange; the new
				// entry stays in the pool.
			default:
				return assignErr
			}
		}

		// Resolve the poster's own want from the existing pool.
		receivedPostID, err := s.consumeAvailableEntry(ctx, r, in.UserID)
		if err != nil {
			return err
		}

		exchange := &models.Exchange{
			RequesterUserID: in.UserID,
			SentPostID:      post.ID,
			ReceivedPostID:  receivedPostID,
			ExchangeDate:    today,
		}
		if err := r.Exchanges.Create(ctx, exchange); err != nil {
			if repository.IsUniqueViolation(err) {
				return models.NewAlreadyPostedError()
			}
			return err
		}

		if receivedPostID != nil {
			middleware.ExchangesMatched.Inc()
		} else {
			middleware.ExchangesWaiting.Inc()
		}
		middleware.PostsCreated.Inc()

		postID = post.ID
		matched = receivedPostID != nil
		return nil
	})
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	span.AddAttributes(attribute.Bool("exchange.matched", matched))
	cache.InvalidateStats(ctx)
	return postID, nil
}

// consumeAvailableEntry searches the pool for an entry the user may receive
// and consumes it. A lost consume race is recovered by re-searching; after
// consumeRetries losses, or with an empty pool, the user waits.
func (s *PostService) consumeAvailableEntry(ctx context.Context, r repository.TxRepos, userID uint) (*uint, error) {
	excluded, err := r.Exchanges.GetReceivedTrackIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < consumeRetries; attempt++ {
		entry, err := r.PoolEntries.FindAvailableEntry(ctx, userID, excluded)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}
		if err := r.PoolEntries.MarkConsumed(ctx, entry.ID); err != nil {
			if errors.Is(err, repository.ErrPoolEntryConsumed) {
				middleware.PoolConsumeConflicts.Inc()
				continue
			}
			return nil, err
		}
		postID := entry.PostID
		return &postID, nil
	}
	return nil, nil
}

// GetTodayReceivedPost computes what, if anything, the user has received
// today. The self-post and duplicate-track filters re-check at read time
// what the matching queries already exclude at write time.
func (s *PostService) GetTodayReceivedPost(ctx context.Context, userID uint) (*ReceivedPostResult, error) {
	exchange, err := s.exchangeRepo.FindTodayExchange(ctx, userID, s.today())
	if err != nil {
		return nil, err
	}
	if exchange == nil || exchange.ReceivedPost == nil {
		return &ReceivedPostResult{HasReceived: false}, nil
	}

	received := exchange.ReceivedPost
	if received.UserID == userID {
		return &ReceivedPostResult{
			HasReceived: false,
			Message:     "cannot receive own post",
		}, nil
	}

	duplicate, err := s.exchangeRepo.HasPastExchangeWithTrack(ctx, userID, received.TrackID, exchange.ID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &ReceivedPostResult{
			HasReceived: false,
			Message:     "already received this track",
		}, nil
	}

	return &ReceivedPostResult{
		HasReceived: true,
		Post:        postView(received),
	}, nil
}

// CheckAndReceiveFromPool opportunistically re-runs the pool pairing for a
// user whose exchange is still waiting, outside the post-creation flow.
// Polling clients call this until it reports true or the day ends.
func (s *PostService) CheckAndReceiveFromPool(ctx context.Context, userID uint) (bool, error) {
	waiting, err := s.exchangeRepo.FindLatestWaiting(ctx, userID)
	if err != nil {
		return false, err
	}
	if waiting == nil {
		return false, nil
	}

	span, ctx := observability.NewSpan(ctx, "exchange.check_receive")
	defer span.End()
	span.AddAttributes(attribute.Int("user.id", int(userID)))

	matched := false
	err = s.uow.Do(ctx, func(r repository.TxRepos) error {
		receivedPostID, err := s.consumeAvailableEntry(ctx, r, userID)
		if err != nil {
			return err
		}
		if receivedPostID == nil {
			return nil
		}
		// A failed assignment rolls the whole transaction back, releasing
		// the entry we just consumed.
		if err := r.Exchanges.AssignReceivedPost(ctx, waiting.ID, *receivedPostID); err != nil {
			return err
		}
		matched = true
		return nil
	})
	if errors.Is(err, repository.ErrExchangeResolved) {
		return false, nil
	}
	if err != nil {
		span.SetError(err)
		return false, err
	}
	span.AddAttributes(attribute.Bool("exchange.matched", matched))
	if matched {
		middleware.ExchangesMatched.Inc()
	}
	return matched, nil
}

// GetPostByID returns the full projection of one post.
func (s *PostService) GetPostByID(ctx context.Context, id uint) (*PostView, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewNotFoundError("post", id)
	}
	return postView(post), nil
}

// GetStats assembles the public activity snapshot, cached briefly since it
// backs an unauthenticated endpoint.
func (s *PostService) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := cache.Aside(ctx, cache.StatsKey(), &stats, cache.StatsTTL, func() error {
		today := s.today()

		todayExchange, err := s.exchangeRepo.GetTodayRandomExchange(ctx, today)
		if err != nil {
			return err
		}
		popular, err := s.postRepo.GetMostPopularTrack(ctx)
		if err != nil {
			return err
		}
		activeUsers, err := s.postRepo.GetTodayActiveUsersCount(ctx, today)
		if err != nil {
			return err
		}

		stats = Stats{
			TodayExchange: todayExchange,
			PopularTrack:  popular,
			ActiveUsers:   activeUsers,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetReceivedHistory pages over the user's resolved exchanges, newest first.
func (s *PostService) GetReceivedHistory(ctx context.Context, userID uint, page, perPage int) ([]ReceivedHistoryItem, models.Pagination, error) {
	exchanges, pagination, err := s.exchangeRepo.GetReceivedByUserPaginated(ctx, userID, page, perPage)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	items := make([]ReceivedHistoryItem, 0, len(exchanges))
	for _, exchange := range exchanges {
		post := exchange.ReceivedPost
		if post == nil {
			continue
		}
		items = append(items, ReceivedHistoryItem{
			ID:           exchange.ID,
			ReceivedAt:   exchange.CreatedAt.Format(time.RFC3339),
			FromUsername: post.User.Username,
			Track:        trackView(post.Track),
			Genres:       genreViews(post.Genres),
			Comment:      post.Comment,
		})
	}
	return items, pagination, nil
}

// GetSentHistory pages over the user's own submissions, newest first.
func (s *PostService) GetSentHistory(ctx context.Context, userID uint, page, perPage int) ([]SentHistoryItem, models.Pagination, error) {
	posts, pagination, err := s.postRepo.GetByUserPaginated(ctx, userID, page, perPage)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	items := make([]SentHistoryItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, SentHistoryItem{
			ID:       post.ID,
			PostDate: post.PostDate,
			Track:    trackView(post.Track),
			Genres:   genreViews(post.Genres),
			Comment:  post.Comment,
		})
	}
	return items, pagination, nil
}
