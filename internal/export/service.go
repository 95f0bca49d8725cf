package export

import (
	"fmt"
	"time"

	"civicdesk/api/internal/store"
)

// Service generates downloadable complaint reports
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export renders one complaint as a report in the requested format
func (s *Service) Export(c store.Complaint, format Format) (*Result, error) {
	data := reportData(c)

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	name := fmt.Sprintf("complaint-%d", c.ID)
	switch format {
	case FormatPDF:
		return exportPDF(html, name)
	case FormatDOCX:
		return exportDOCX(html, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func reportData(c store.Complaint) ReportData {
	data := ReportData{
		ID:           c.ID,
		Name:         c.Name,
		Phone:        c.Phone,
		Address:      c.Address,
		Category:     c.Category,
		Message:      c.Message,
		Department:   c.Department,
		Status:       c.Status,
		RejectReason: c.RejectReason,
		CreatedAt:    c.CreatedAt,
		CompletedAt:  c.CompletedAt,
		GeneratedAt:  time.Now(),
	}
	if c.Latitude != nil && c.Longitude != nil {
		data.HasLocation = true
		data.Latitude = *c.Latitude
		data.Longitude = *c.Longitude
	}
	for _, m := range c.Media {
		data.Media = append(data.Media, ReportMedia{
			URL:    m.URL,
			Type:   string(m.Type),
			Origin: string(m.Origin),
		})
	}
	return data
}
