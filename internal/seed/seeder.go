package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Counts sizes a seeding run.
type Counts struct {
	Users    int
	Games    int
	Videos   int
	Comments int
}

// DevCounts fills a development database with enough data to page through.
var DevCounts = Counts{Users: 200, Games: 20, Videos: 2000, Comments: 4000}

// TestCounts is a minimal data set for smoke tests.
var TestCounts = Counts{Users: 10, Games: 4, Videos: 60, Comments: 40}

var provinces = []string{"北京", "广东", "江苏", "浙江", "四川", "湖北", "上海"}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Games    int
	Videos   int
	Comments int
	Replies  int
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker

	users     repository.UserRepository
	games     repository.GameRepository
	videos    repository.VideoRepository
	relations repository.RelationRepository
	comments  repository.CommentRepository
	editorial repository.EditorialRepository
	reports   repository.ReportRepository
}

// NewSeeder creates a new seeder instance. The same seed yields the same data.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	return &Seeder{
		db:        db,
		faker:     gofakeit.New(seed),
		users:     repository.NewUserRepository(db),
		games:     repository.NewGameRepository(db),
		videos:    repository.NewVideoRepository(db),
		relations: repository.NewRelationRepository(db),
		comments:  repository.NewCommentRepository(db),
		editorial: repository.NewEditorialRepository(db),
		reports:   repository.NewReportRepository(db),
	}
}

// Seed creates users, games, videos and everything that hangs off them.
func (s *Seeder) Seed(ctx context.Context, n Counts) (*Summary, error) {
	log := func(msg string) {
		logger.Log.Info(msg)
	}
	sum := &Summary{}

	log("Creating users...")
	users, err := s.seedUsers(ctx, n.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	log("Creating games...")
	games, err := s.seedGames(ctx, n.Games)
	if err != nil {
		return nil, fmt.Errorf("failed to seed games: %w", err)
	}
	sum.Games = len(games)

	log("Creating videos...")
	videos, err := s.seedVideos(ctx, users, games, n.Videos)
	if err != nil {
		return nil, fmt.Errorf("failed to seed videos: %w", err)
	}
	sum.Videos = len(videos)

	log("Creating follows, subscriptions, likes and favorites...")
	if err := s.seedRelations(ctx, users, games, videos); err != nil {
		return nil, fmt.Errorf("failed to seed relations: %w", err)
	}

	log("Creating comments...")
	if sum.Comments, sum.Replies, err = s.seedComments(ctx, users, videos, n.Comments); err != nil {
		return nil, fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating editorial content...")
	if err := s.seedEditorial(ctx, games, videos); err != nil {
		return nil, fmt.Errorf("failed to seed editorial content: %w", err)
	}

	log("Creating report thresholds and VIP grids...")
	if err := s.seedSettings(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	logger.Log.Info("Seeding finished",
		zap.Int("users", sum.Users),
		zap.Int("games", sum.Games),
		zap.Int("videos", sum.Videos),
		zap.Int("comments", sum.Comments),
		zap.Int("replies", sum.Replies),
	)
	return sum, nil
}

func (s *Seeder) phone() string {
	return fmt.Sprintf("1%d%09d", s.faker.Number(3, 9), s.faker.Number(0, 999999999))
}

// timestamp picks a moment within the last 30 days as float seconds.
func (s *Seeder) timestamp() float64 {
	now := time.Now()
	t := s.faker.DateRange(now.AddDate(0, 0, -30), now)
	return float64(t.UnixNano()) / 1e9
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user := &models.User{
			Name:     fmt.Sprintf("%s%d", s.faker.Username(), i),
			Nickname: s.faker.Name(),
			Gender:   s.faker.Number(0, 2),
			CreateAt: s.timestamp(),
		}
		// a third of the accounts come from Migu
		if i%3 == 0 {
			user.MiguOpenID = s.faker.UUID()
			user.Phone = s.phone()
			user.Province = s.faker.RandomString(provinces)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedGames(ctx context.Context, count int) ([]*models.Game, error) {
	games := make([]*models.Game, 0, count)
	for i := 0; i < count; i++ {
		game := &models.Game{
			Name:  s.faker.AppName(),
			Intro: s.faker.HipsterSentence(),
			Icon:  fmt.Sprintf("games/%d/icon.png", i),
			Cover: fmt.Sprintf("games/%d/cover.jpg", i),
		}
		// every other game is listed in the Migu hall
		if i%2 == 0 {
			game.Bid = fmt.Sprintf("%d", 700000+i)
			game.URL = fmt.Sprintf("http://g.10086.cn/game/%s", game.Bid)
		}
		if err := s.games.Create(ctx, game); err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	tags := []string{"动作", "角色扮演", "休闲", "竞技"}
	for i, name := range tags {
		tag := &models.Category{Name: name, Order: i}
		if err := s.games.CreateCategory(ctx, tag); err != nil {
			return nil, err
		}
		for j := i; j < len(games); j += len(tags) {
			if err := s.games.AddToCategory(ctx, tag.ID, games[j].ID); err != nil {
				return nil, err
			}
		}
	}
	return games, nil
}

func (s *Seeder) seedVideos(ctx context.Context, users []*models.User, games []*models.Game, count int) ([]*models.Video, error) {
	if len(users) == 0 || len(games) == 0 {
		return nil, nil
	}
	videos := make([]*models.Video, 0, count)
	for i := 0; i < count; i++ {
		createAt := s.timestamp()
		video := &models.Video{
			Author:      users[s.faker.Number(0, len(users)-1)].ID,
			Game:        games[s.faker.Number(0, len(games)-1)].ID,
			Title:       s.faker.HipsterSentence(),
			Duration:    s.faker.Number(10, 600),
			Ratio:       "16:9",
			Cover:       fmt.Sprintf("covers/%d.jpg", i),
			URL:         fmt.Sprintf("videos/%d.mp4", i),
			Status:      models.VideoOnline,
			Vv:          int64(s.faker.Number(0, 50000)),
			IsElite:     s.faker.Number(0, 9) == 0,
			ReleaseTime: createAt,
			CreateAt:    createAt,
		}
		switch s.faker.Number(0, 19) {
		case 0:
			video.Status = models.VideoUploading
		case 1:
			video.Status = models.VideoOffline
		case 2, 3:
			video.EventID = s.faker.UUID()
		}
		if err := s.videos.Create(ctx, video); err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (s *Seeder) seedRelations(ctx context.Context, users []*models.User, games []*models.Game, videos []*models.Video) error {
	if len(users) < 2 {
		return nil
	}
	for _, user := range users {
		for k := 0; k < s.faker.Number(1, 10); k++ {
			target := users[s.faker.Number(0, len(users)-1)]
			if target.ID == user.ID {
				continue
			}
			if err := s.users.Follow(ctx, user.ID, target.ID); err != nil {
				return err
			}
		}
		for k := 0; k < s.faker.Number(0, 3) && len(games) > 0; k++ {
			if err := s.games.Subscribe(ctx, user.ID, games[s.faker.Number(0, len(games)-1)].ID); err != nil {
				return err
			}
		}
		for k := 0; k < s.faker.Number(0, 20) && len(videos) > 0; k++ {
			video := videos[s.faker.Number(0, len(videos)-1)]
			if _, err := s.relations.AddLike(ctx, user.ID, video.ID); err != nil {
				return err
			}
			if k%3 == 0 {
				if _, err := s.relations.AddFavorite(ctx, user.ID, video.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) seedComments(ctx context.Context, users []*models.User, videos []*models.Video, count int) (int, int, error) {
	if len(users) == 0 || len(videos) == 0 {
		return 0, 0, nil
	}
	comments, replies := 0, 0
	for i := 0; i < count; i++ {
		video := videos[s.faker.Number(0, len(videos)-1)]
		if !video.IsOnline() {
			continue
		}
		comment := &models.Comment{
			Video:    video.ID,
			Author:   users[s.faker.Number(0, len(users)-1)].ID,
			Content:  s.faker.HipsterSentence(),
			CreateAt: s.timestamp(),
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			return comments, replies, err
		}
		comments++

		for k := 0; k < s.faker.Number(0, 6); k++ {
			reply := &models.Reply{
				Comment:  comment.ID,
				Owner:    users[s.faker.Number(0, len(users)-1)].ID,
				Content:  s.faker.HipsterSentence(),
				CreateAt: comment.CreateAt + float64(k+1),
			}
			if err := s.comments.CreateReply(ctx, reply); err != nil {
				return comments, replies, err
			}
			replies++
		}
	}
	return comments, replies, nil
}

func (s *Seeder) seedEditorial(ctx context.Context, games []*models.Game, videos []*models.Video) error {
	var online []*models.Video
	for _, v := range videos {
		if v.IsOnline() {
			online = append(online, v)
		}
	}
	if len(online) == 0 {
		return nil
	}

	for i, name := range []string{"精彩集锦", "新手教学", "高手对决"} {
		category := &models.VideoCategory{Name: name, Order: i}
		if err := s.editorial.CreateCategory(ctx, category); err != nil {
			return err
		}
		for _, v := range online {
			if s.faker.Number(0, 9) == 0 {
				if err := s.editorial.AddToCategory(ctx, category.ID, v.Game, v.ID); err != nil {
					return err
				}
			}
		}
	}

	for i := 0; i < 3; i++ {
		topic := &models.VideoTopic{
			Name:        s.faker.HipsterSentence(),
			Description: s.faker.HipsterSentence(),
			Order:       i,
		}
		if err := s.editorial.CreateTopic(ctx, topic); err != nil {
			return err
		}
		for k := 0; k < 15; k++ {
			if err := s.editorial.AddToTopic(ctx, topic.ID, online[s.faker.Number(0, len(online)-1)].ID); err != nil {
				return err
			}
		}
	}

	for i := 0; i < 10 && i < len(online); i++ {
		if err := s.editorial.AddEditorPick(ctx, online[i].ID, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedSettings(ctx context.Context) error {
	for source := models.ReportFromVideo; source <= models.ReportFromReply; source++ {
		cfg := &models.ReportConfig{Source: source, MaxLimit: 5, Group: "moderators"}
		if err := s.reports.SaveConfig(ctx, cfg); err != nil {
			return err
		}
	}
	grids := []*models.GameGrid{
		{Name: "会员", OS: "ios", Action: "wanx://vip/ios", Order: 1},
		{Name: "会员", Province: models.StringArray{"广东"}, Action: "wanx://vip/guangdong", Order: 2},
		{Name: "会员", Action: "wanx://vip", Order: 3},
	}
	return s.db.WithContext(ctx).Create(&grids).Error
}

// Clean removes every seeded row
func (s *Seeder) Clean(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range models.All() {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clean %T: %w", model, err)
		}
	}
	return nil
}
