package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/victornm/adwatch/internal/admin"
	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
)

func (a *API) checkAdmin(c *gin.Context) {
	isAdmin, err := a.user.IsAdmin(c.Request.Context(), clerkID(c))
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isAdmin": isAdmin})
}

func (a *API) setupAdmin(c *gin.Context) {
	u, err := a.admin.Setup(c.Request.Context(), clerkID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserView(*u)})
}

type dayCountView struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type adStatsView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Reward     float64 `json:"reward"`
	WatchCount int     `json:"watchCount"`
}

type userStatsView struct {
	userView
	WatchCount int `json:"watchCount"`
}

func (a *API) analytics(c *gin.Context) {
	an, err := a.admin.Analytics(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	topAds := make([]adStatsView, 0, len(an.TopAds))
	for _, st := range an.TopAds {
		topAds = append(topAds, adStatsView{
			ID:         st.Ad.ID,
			Title:      st.Ad.Title,
			Category:   st.Ad.Category,
			Reward:     st.Ad.Reward.InexactFloat64(),
			WatchCount: st.WatchCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"counts": gin.H{
			"users":         an.Users,
			"ads":           an.Ads,
			"adWatches":     an.AdWatches,
			"totalEarnings": an.TotalEarnings.InexactFloat64(),
			"totalPaid":     an.TotalPaid.InexactFloat64(),
		},
		"charts": gin.H{
			"userSignups": dayCounts(an.UserSignups),
			"adWatches":   dayCounts(an.WatchesByDay),
		},
		"topAds":          topAds,
		"mostActiveUsers": userStats(an.MostActiveUsers),
	})
}

func (a *API) listUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := a.admin.ListUsers(c.Request.Context(), admin.ListUsersRequest{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": userStats(list.Users),
		"pagination": gin.H{
			"total": list.Total,
			"pages": list.Pages,
			"page":  list.Page,
			"limit": list.Limit,
		},
	})
}

func (a *API) getUserDetail(c *gin.Context) {
	d, err := a.admin.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserView(d.User),
		"metrics": gin.H{
			"totalEarnings":    d.Metrics.TotalEarnings.InexactFloat64(),
			"averageWatchTime": d.Metrics.AverageWatchTime,
			"activityByDay":    dayCounts(d.Metrics.ActivityByDay),
		},
	})
}

type patchUserBody struct {
	IsAdmin bool `json:"isAdmin"`
}

func (a *API) patchUser(c *gin.Context) {
	var body patchUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	u, err := a.admin.SetAdmin(c.Request.Context(), admin.SetAdminRequest{
		UserID:  c.Param("id"),
		IsAdmin: body.IsAdmin,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserView(*u)})
}

func dayCounts(ds []domain.DayCount) []dayCountView {
	views := make([]dayCountView, 0, len(ds))
	for _, d := range ds {
		views = append(views, dayCountView{Date: d.Date, Count: d.Count})
	}
	return views
}

func userStats(us []domain.UserStats) []userStatsView {
	views := make([]userStatsView, 0, len(us))
	for _, st := range us {
		views = append(views, userStatsView{userView: newUserView(st.User), WatchCount: st.WatchCount})
	}
	return views
}
