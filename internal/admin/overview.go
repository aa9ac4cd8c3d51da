package admin

import (
	"context"
	"math"
	"time"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/catalog"
	"github.com/playforge/ugc-backend/internal/identity"
	"github.com/playforge/ugc-backend/internal/wallet"
)

// Status classifies users by whether they published anything.
type Status string

const (
	StatusAll     Status = "all"
	StatusCreator Status = "creator"
	StatusPlayer  Status = "player"
)

// Stats summarises the player base.
type Stats struct {
	TotalUsers    int     `json:"totalUsers"`
	TotalCreators int     `json:"totalCreators"`
	TotalPlayers  int     `json:"totalPlayers"`
	TotalGames    int     `json:"totalGames"`
	WalletUsers   int     `json:"walletUsers"`
	MonthlyNew    int     `json:"mau"`
	DailyNew      int     `json:"dau"`
	UsersGrowth   float64 `json:"usersGrowth"`
}

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	User            identity.User
	Status          Status
	PrimaryWallet   string
	WalletCount     int
	PublishedTitles []string
	LastActive      time.Time
}

// UserDetail is a user with everything linked to it.
type UserDetail struct {
	User    identity.User
	Status  Status
	Wallets []wallet.Link
	Games   []catalog.Game
}

// UserPage is a page of the admin user listing.
type UserPage struct {
	Users []UserSummary
	Total int
	Page  int
	Limit int
}

// TotalPages returns the number of pages for the listing.
func (p UserPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(p.Total) / float64(p.Limit)))
}

// Overview answers the admin console's questions about players by combining
// the identity, wallet and catalog services.
type Overview struct {
	users   *identity.Service
	wallets *wallet.Service
	games   *catalog.Service
	now     func() time.Time
}

// NewOverview builds the admin user overview.
func NewOverview(users *identity.Service, wallets *wallet.Service, games *catalog.Service) *Overview {
	return &Overview{
		users:   users,
		wallets: wallets,
		games:   games,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats counts users, creators and recent sign-ups.
func (o *Overview) Stats(ctx context.Context) (Stats, error) {
	_, total, err := o.users.List(ctx, identity.ListFilter{Limit: 1})
	if err != nil {
		return Stats{}, err
	}
	creators, err := o.games.CreatorIDs(ctx)
	if err != nil {
		return Stats{}, err
	}
	_, creatorCount, err := o.users.List(ctx, identity.ListFilter{IncludeIDs: creators, Limit: 1})
	if err != nil {
		return Stats{}, err
	}
	games, err := o.games.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	walletUsers, err := o.wallets.LinkedUsers(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := o.now()
	_, monthly, err := o.users.List(ctx, identity.ListFilter{CreatedSince: now.AddDate(0, 0, -30), Limit: 1})
	if err != nil {
		return Stats{}, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	_, daily, err := o.users.List(ctx, identity.ListFilter{CreatedSince: today, Limit: 1})
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalUsers:    total,
		TotalCreators: creatorCount,
		TotalPlayers:  total - creatorCount,
		TotalGames:    games,
		WalletUsers:   walletUsers,
		MonthlyNew:    monthly,
		DailyNew:      daily,
		UsersGrowth:   growth(total, total-monthly),
	}, nil
}

// growth is the percentage change from prev to current, rounded to one decimal.
func growth(current, prev int) float64 {
	if prev == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	pct := float64(current-prev) / float64(prev) * 100
	return math.Round(pct*10) / 10
}

// Users lists users newest first, optionally filtered by search text and status.
func (o *Overview) Users(ctx context.Context, search string, status Status, page, limit int) (UserPage, error) {
	filter := identity.ListFilter{Search: search, Newest: true, Limit: limit, Offset: (page - 1) * limit}
	creators, err := o.games.CreatorIDs(ctx)
	if err != nil {
		return UserPage{}, err
	}
	switch status {
	case StatusCreator:
		filter.IncludeIDs = creators
	case StatusPlayer:
		filter.ExcludeIDs = creators
	case StatusAll, "":
	default:
		return UserPage{}, apperr.Validation("status must be creator, player or all")
	}

	users, total, err := o.users.List(ctx, filter)
	if err != nil {
		return UserPage{}, err
	}
	out := UserPage{Users: make([]UserSummary, 0, len(users)), Total: total, Page: page, Limit: limit}
	for _, u := range users {
		summary, err := o.summarise(ctx, u)
		if err != nil {
			return UserPage{}, err
		}
		out.Users = append(out.Users, summary)
	}
	return out, nil
}

func (o *Overview) summarise(ctx context.Context, u identity.User) (UserSummary, error) {
	links, err := o.wallets.List(ctx, u.ID)
	if err != nil {
		return UserSummary{}, err
	}
	games, err := o.games.ListByUser(ctx, u.ID)
	if err != nil {
		return UserSummary{}, err
	}
	s := UserSummary{
		User:            u,
		Status:          statusOf(games),
		WalletCount:     len(links),
		PublishedTitles: make([]string, 0, len(games)),
		LastActive:      u.CreatedAt,
	}
	for _, l := range links {
		if l.Primary {
			s.PrimaryWallet = l.Address
		}
		if l.ConnectedAt.After(s.LastActive) {
			s.LastActive = l.ConnectedAt
		}
	}
	for _, g := range games {
		s.PublishedTitles = append(s.PublishedTitles, g.Title)
	}
	return s, nil
}

func statusOf(games []catalog.Game) Status {
	if len(games) > 0 {
		return StatusCreator
	}
	return StatusPlayer
}

// User returns a user with its wallets and games.
func (o *Overview) User(ctx context.Context, id string) (UserDetail, error) {
	u, err := o.users.Get(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	links, err := o.wallets.List(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	games, err := o.games.ListByUser(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail{User: u, Status: statusOf(games), Wallets: links, Games: games}, nil
}

// DeleteUser removes a user. Published games are deleted first so their
// stored files go with them; wallets and tokens cascade.
func (o *Overview) DeleteUser(ctx context.Context, id string) (identity.User, error) {
	u, err := o.users.Get(ctx, id)
	if err != nil {
		return identity.User{}, err
	}
	games, err := o.games.ListByUser(ctx, id)
	if err != nil {
		return identity.User{}, err
	}
	for _, g := range games {
		if err := o.games.Delete(ctx, u.ID, g.ID); err != nil {
			return identity.User{}, err
		}
	}
	return o.users.Delete(ctx, u.ID)
}

// SetCoins overwrites a user's coin balance.
func (o *Overview) SetCoins(ctx context.Context, id string, coins int64) (identity.User, error) {
	return o.users.UpdateCoins(ctx, "", id, coins)
}
