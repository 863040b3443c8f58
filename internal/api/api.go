// Package api exposes the platform over HTTP JSON. Handlers bind and render;
// all behavior lives in the service packages.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/admin"
	"github.com/victornm/adwatch/internal/auth"
	"github.com/victornm/adwatch/internal/catalog"
	"github.com/victornm/adwatch/internal/clerk"
	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/reward"
	"github.com/victornm/adwatch/internal/upload"
	"github.com/victornm/adwatch/internal/user"
)

type Config struct {
	Router *gin.Engine

	Catalog *catalog.Service
	Reward  *reward.Service
	User    *user.Service
	Admin   *admin.Service
	Upload  *upload.Service

	Auth     *auth.Verifier
	Webhooks *clerk.Verifier
}

type API struct {
	catalog *catalog.Service
	reward  *reward.Service
	user    *user.Service
	admin   *admin.Service
	upload  *upload.Service

	auth     *auth.Verifier
	webhooks *clerk.Verifier
}

func New(c Config) *API {
	a := &API{
		catalog:  c.Catalog,
		reward:   c.Reward,
		user:     c.User,
		admin:    c.Admin,
		upload:   c.Upload,
		auth:     c.Auth,
		webhooks: c.Webhooks,
	}

	r := c.Router.Group("/api")
	r.GET("/ads", a.listAds)
	r.POST("/webhooks/clerk", a.handleClerkWebhook)

	authed := r.Group("", a.authenticate)
	authed.POST("/ads/watch", a.submitWatch)
	authed.GET("/user", a.getUser)
	authed.POST("/user/balance", a.addBalance)
	authed.POST("/upload", a.uploadVideo)
	authed.GET("/admin/check", a.checkAdmin)
	authed.POST("/admin/setup", a.setupAdmin)
	authed.POST("/ads/create", a.requireAdmin, a.createAd)

	restricted := authed.Group("/admin", a.requireAdmin)
	restricted.GET("/analytics", a.analytics)
	restricted.GET("/users", a.listUsers)
	restricted.GET("/users/:id", a.getUserDetail)
	restricted.PATCH("/users/:id", a.patchUser)

	return a
}

func (a *API) listAds(c *gin.Context) {
	ads, err := a.catalog.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, ads)
}

type createAdBody struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Duration    int                `json:"duration"`
	Reward      float64            `json:"reward"`
	Category    string             `json:"category"`
	Difficulty  string             `json:"difficulty"`
	VideoURL    string             `json:"videoUrl"`
	Questions   []createAdQuestion `json:"questions"`
}

type createAdQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (a *API) createAd(c *gin.Context) {
	var body createAdBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	questions := make([]catalog.QuestionInput, 0, len(body.Questions))
	for _, q := range body.Questions {
		questions = append(questions, catalog.QuestionInput{Question: q.Question, Options: q.Options})
	}

	ad, err := a.catalog.Create(c.Request.Context(), catalog.CreateAdRequest{
		Title:       body.Title,
		Description: body.Description,
		Duration:    body.Duration,
		Reward:      decimal.NewFromFloat(body.Reward),
		Category:    body.Category,
		Difficulty:  body.Difficulty,
		VideoURL:    body.VideoURL,
		Questions:   questions,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "ad": ad})
}

type submitWatchBody struct {
	AdID        string         `json:"adId"`
	WatchTime   int            `json:"watchTime"`
	Answers     []submitAnswer `json:"answers"`
	Feedback    string         `json:"feedback"`
	ClientToken string         `json:"clientToken"`
}

type submitAnswer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

func (a *API) submitWatch(c *gin.Context) {
	var body submitWatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	answers := make([]reward.AnswerInput, 0, len(body.Answers))
	for _, ans := range body.Answers {
		answers = append(answers, reward.AnswerInput{QuestionID: ans.QuestionID, Value: ans.Value})
	}

	resp, err := a.reward.Submit(c.Request.Context(), reward.SubmitRequest{
		ClerkID:     clerkID(c),
		AdID:        body.AdID,
		WatchTime:   body.WatchTime,
		Answers:     answers,
		Feedback:    body.Feedback,
		ClientToken: body.ClientToken,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reward": resp.Reward.InexactFloat64()})
}

type userView struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	Balance          float64        `json:"balance"`
	AdsWatched       int            `json:"adsWatched"`
	WatchTimeMinutes int            `json:"watchTimeMinutes"`
	FeedbackScore    int            `json:"feedbackScore"`
	IsAdmin          bool           `json:"isAdmin"`
	LastActive       time.Time      `json:"lastActive"`
	CreatedAt        time.Time      `json:"createdAt"`
	RecentActivity   []activityView `json:"recentActivity,omitempty"`
}

type activityView struct {
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

func newUserView(u domain.User) userView {
	return userView{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Balance:          u.Balance.InexactFloat64(),
		AdsWatched:       u.AdsWatched,
		WatchTimeMinutes: u.WatchTimeMinutes,
		FeedbackScore:    u.FeedbackScore,
		IsAdmin:          u.IsAdmin,
		LastActive:       u.LastActive,
		CreatedAt:        u.CreatedAt,
	}
}

func (a *API) getUser(c *gin.Context) {
	p, err := a.user.Get(c.Request.Context(), clerkID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	v := newUserView(p.User)
	v.RecentActivity = make([]activityView, 0, len(p.RecentActivity))
	for _, act := range p.RecentActivity {
		v.RecentActivity = append(v.RecentActivity, activityView{
			Title:  act.Title,
			Date:   act.Date,
			Amount: act.Amount.InexactFloat64(),
		})
	}

	c.JSON(http.StatusOK, v)
}

type addBalanceBody struct {
	Amount float64 `json:"amount"`
}

func (a *API) addBalance(c *gin.Context) {
	var body addBalanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.user.AddBalance(c.Request.Context(), user.AddBalanceRequest{
		ClerkID: clerkID(c),
		Amount:  decimal.NewFromFloat(body.Amount),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "balance": resp.Balance.InexactFloat64()})
}

func (a *API) uploadVideo(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("missing file")))
		return
	}

	f, err := file.Open()
	if err != nil {
		renderError(c, err)
		return
	}
	defer f.Close()

	resp, err := a.upload.Upload(c.Request.Context(), upload.UploadRequest{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        f,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": resp.URL})
}
