package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	warrantydomain "github.com/smallbiznis/warranty/internal/warranty/domain"
)

type issueQuoteRequest struct {
	JobReference string   `json:"job_reference"`
	TierID       string   `json:"tier_id"`
	JobTotal     *float64 `json:"job_total"`
}

func (s *Server) ListTiers(c *gin.Context) {
	resp, err := s.warrantySvc.ListTiers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuotes(c *gin.Context) {
	jobTotal, err := parseAmountQuery(c.Query("job_total"), "job_total")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.warrantySvc.Quotes(c.Request.Context(), jobTotal)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuoteForTier(c *gin.Context) {
	tierID := strings.TrimSpace(c.Param("tier_id"))
	c.Set("tier_id", tierID)

	jobTotal, err := parseAmountQuery(c.Query("job_total"), "job_total")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.warrantySvc.QuoteForTier(c.Request.Context(), jobTotal, tierID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRecommendation(c *gin.Context) {
	jobTotal, err := parseAmountQuery(c.Query("job_total"), "job_total")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.warrantySvc.Recommend(c.Request.Context(), warrantydomain.RecommendRequest{
		JobTotal: jobTotal,
		Policy:   strings.TrimSpace(c.Query("policy")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("tier_id", resp.Recommended.TierID)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FormatPrice(c *gin.Context) {
	amount, err := parseAmountQuery(c.Query("amount"), "amount")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"formatted": s.warrantySvc.FormatPrice(c.Request.Context(), amount),
	}})
}

func (s *Server) IssueQuote(c *gin.Context) {
	var req issueQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.JobTotal == nil {
		AbortWithError(c, newValidationError("job_total", "required", "job_total is required"))
		return
	}
	c.Set("tier_id", strings.TrimSpace(req.TierID))

	ref, err := warrantydomain.ValidateJobReference(req.JobReference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	release, ok := s.lockJobReference(c, ref)
	if !ok {
		return
	}
	defer release()

	resp, err := s.warrantySvc.IssueQuote(c.Request.Context(), warrantydomain.IssueRequest{
		JobReference: ref,
		TierID:       strings.TrimSpace(req.TierID),
		JobTotal:     *req.JobTotal,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) ListIssuedQuotes(c *gin.Context) {
	resp, err := s.warrantySvc.ListIssuedQuotes(c.Request.Context(), c.Query("job_reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetIssuedQuote(c *gin.Context) {
	resp, err := s.warrantySvc.GetIssuedQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("tier_id", resp.TierID)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderIssuedQuote(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	r, err := s.warrantySvc.RenderIssuedQuote(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(r)
	if err != nil {
		AbortWithError(c, errors.Join(ErrInternal, err))
		return
	}

	c.Header("Content-Disposition", `inline; filename="warranty-quote-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
