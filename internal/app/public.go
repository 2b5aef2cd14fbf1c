package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/booking"
)

// GET /public/:slug/details
func (a *App) PublicDetailsHandler(c *gin.Context) {
	d, err := a.Bookings.Details(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /public/:slug/slots?date=YYYY-MM-DD
func (a *App) PublicSlotsHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		badRequest(c, "date required (YYYY-MM-DD)")
		return
	}
	slots, err := a.Bookings.Slots(c.Request.Context(), c.Param("slug"), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

type bookReq struct {
	InviteeName   string  `json:"invitee_name"`
	InviteeEmail  string  `json:"invitee_email"`
	InviteeNote   *string `json:"invitee_note"`
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   string  `json:"end_datetime"`
}

// POST /public/:slug/book
// Timestamps without an offset are read in the system timezone.
func (a *App) PublicBookHandler(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	loc := a.Bookings.Location()
	start, err := availability.ParseTimestamp(req.StartDatetime, loc)
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := availability.ParseTimestamp(req.EndDatetime, loc)
	if err != nil {
		respondError(c, err)
		return
	}

	b, err := a.Bookings.Book(c.Request.Context(), c.Param("slug"), booking.BookRequest{
		InviteeName:  req.InviteeName,
		InviteeEmail: req.InviteeEmail,
		InviteeNote:  req.InviteeNote,
		Start:        start,
		End:          end,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}
