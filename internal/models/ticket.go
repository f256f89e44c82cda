package models

// Ticket is an issue reported through the chatbot.
type Ticket struct {
	ID          string `json:"id" firestore:"-" db:"id"`
	UserID      string `json:"userId" firestore:"userId" db:"user_id"`
	BinID       string `json:"binId" firestore:"binId" db:"bin_id"`
	Issue       string `json:"issue" firestore:"issue" db:"issue"`
	Description string `json:"description" firestore:"description" db:"description"`
	Status      string `json:"status" firestore:"status" db:"status"`
	CreatedAt   string `json:"createdAt" firestore:"createdAt" db:"created_at"`
}

// TicketStatusOpen is the status of a freshly reported ticket.
const TicketStatusOpen = "open"

// ReportRequest is the request body for POST /chatbot/report
type ReportRequest struct {
	UserID      string `json:"userId"`
	BinID       string `json:"binId"`
	Issue       string `json:"issue"`
	Description string `json:"description"`
}

// Stats is the response of GET /stats.
type Stats struct {
	TotalBins        int     `json:"totalBins"`
	NormalBins       int     `json:"normalBins"`
	WarningBins      int     `json:"warningBins"`
	FullBins         int     `json:"fullBins"`
	AverageFillLevel float64 `json:"averageFillLevel"`
	TotalWeight      float64 `json:"totalWeight"`
	LastUpdated      string  `json:"lastUpdated"`
}

// ComputeStats aggregates bins using the dashboard's /stats boundaries
// (normal <= 60, warning 60..80, full > 80).
func ComputeStats(bins []Bin) Stats {
	s := Stats{TotalBins: len(bins)}
	var fillSum float64
	for i := range bins {
		fill := 0.0
		if bins[i].FillPct != nil {
			fill = *bins[i].FillPct
		}
		switch {
		case fill > 80:
			s.FullBins++
		case fill > 60:
			s.WarningBins++
		default:
			s.NormalBins++
		}
		fillSum += fill
		if bins[i].WeightKg != nil {
			s.TotalWeight += *bins[i].WeightKg
		}
	}
	if len(bins) > 0 {
		s.AverageFillLevel = fillSum / float64(len(bins))
	}
	return s
}
