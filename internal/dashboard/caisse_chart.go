package dashboard

import (
	"fmt"
	"sort"
	"time"

	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CaisseChartPoint struct {
	Label   string          `json:"label"` // jour / début de semaine / début de mois
	Entrees decimal.Decimal `json:"entrees"`
	Sorties decimal.Decimal `json:"sorties"`
	Net     decimal.Decimal `json:"net"`
}

type CaisseChartTotaux struct {
	Entrees decimal.Decimal `json:"entrees"`
	Sorties decimal.Decimal `json:"sorties"`
	Net     decimal.Decimal `json:"net"`
}

type CaisseChartResponse struct {
	AgenceID uint               `json:"agence_id"`
	Period   string             `json:"period"` // daily | weekly | monthly
	From     string             `json:"from"`
	To       string             `json:"to"`
	Points   []CaisseChartPoint `json:"points"`
	Totaux   CaisseChartTotaux  `json:"totaux"`
}

// GET /api/dashboard/caisse-chart?period=daily&count=7&agence_id=1
func CaisseChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily") // daily | weekly | monthly
		countStr := c.Query("count", "")

		var count int
		if countStr == "" {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		} else {
			if _, err := fmt.Sscan(countStr, &count); err != nil || count <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "count invalide")
			}
		}

		now := time.Now()
		loc := now.Location()
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		var start time.Time

		switch period {
		case "weekly":
			start = end.AddDate(0, 0, -7*(count-1))
		case "monthly":
			end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
			start = end.AddDate(0, -(count - 1), 0)
			end = start.AddDate(0, count, 0).AddDate(0, 0, -1)
		default:
			period = "daily"
			start = end.AddDate(0, 0, -(count - 1))
		}

		type row struct {
			Bucket time.Time       `gorm:"column:bucket"`
			Sens   string          `gorm:"column:sens"`
			Total  decimal.Decimal `gorm:"column:total"`
		}
		var rows []row

		var sql string
		switch period {
		case "weekly":
			sql = `
				SELECT date_trunc('week', created_at)::date AS bucket,
					   sens,
					   SUM(montant) AS total
				FROM mouvement_caisses
				WHERE agence_id = ? AND created_at >= ? AND created_at < ?
				GROUP BY bucket, sens
				ORDER BY bucket ASC;
			`
		case "monthly":
			sql = `
				SELECT date_trunc('month', created_at)::date AS bucket,
					   sens,
					   SUM(montant) AS total
				FROM mouvement_caisses
				WHERE agence_id = ? AND created_at >= ? AND created_at < ?
				GROUP BY bucket, sens
				ORDER BY bucket ASC;
			`
		default:
			sql = `
				SELECT created_at::date AS bucket,
					   sens,
					   SUM(montant) AS total
				FROM mouvement_caisses
				WHERE agence_id = ? AND created_at >= ? AND created_at < ?
				GROUP BY bucket, sens
				ORDER BY bucket ASC;
			`
		}

		if err := database.DB.Raw(sql, agenceID, start, end.AddDate(0, 0, 1)).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Agrégation du journal impossible")
		}

		type bucketAgg struct {
			Bucket  time.Time
			Entrees decimal.Decimal
			Sorties decimal.Decimal
		}
		buckets := make(map[time.Time]*bucketAgg)
		for _, r := range rows {
			agg, ok := buckets[r.Bucket]
			if !ok {
				agg = &bucketAgg{Bucket: r.Bucket}
				buckets[r.Bucket] = agg
			}
			if r.Sens == "entree" {
				agg.Entrees = agg.Entrees.Add(r.Total)
			} else {
				agg.Sorties = agg.Sorties.Add(r.Total)
			}
		}

		ordered := make([]bucketAgg, 0, len(buckets))
		for _, v := range buckets {
			ordered = append(ordered, *v)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Bucket.Before(ordered[j].Bucket)
		})

		points := make([]CaisseChartPoint, 0, len(ordered))
		totaux := CaisseChartTotaux{}
		for _, b := range ordered {
			net := b.Entrees.Sub(b.Sorties)
			points = append(points, CaisseChartPoint{
				Label:   b.Bucket.Format("2006-01-02"),
				Entrees: b.Entrees,
				Sorties: b.Sorties,
				Net:     net,
			})
			totaux.Entrees = totaux.Entrees.Add(b.Entrees)
			totaux.Sorties = totaux.Sorties.Add(b.Sorties)
			totaux.Net = totaux.Net.Add(net)
		}

		return c.JSON(CaisseChartResponse{
			AgenceID: agenceID,
			Period:   period,
			From:     start.Format("2006-01-02"),
			To:       end.Format("2006-01-02"),
			Points:   points,
			Totaux:   totaux,
		})
	}
}
