package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// SQLListingsSource scans the external flights/hotels listings
// database directly: a watermarked "SELECT ... ORDER BY ... LIMIT"
// sweep against the raw listings tables a separate loader populates.
// This type never writes those tables; it only republishes rows more
// recent than the last scan.
type SQLListingsSource struct {
	db           *sql.DB
	lastFlightAt time.Time
	lastHotelAt  time.Time
	batchLimit   int
}

// NewSQLListingsSource opens a connection to the listings database at
// dsn using the lib/pq driver. The returned source starts with a
// zero-value watermark so the first scan ingests every existing row.
func NewSQLListingsSource(dsn string, batchLimit int) (*SQLListingsSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &SQLListingsSource{db: db, batchLimit: batchLimit}, nil
}

func (s *SQLListingsSource) Close() error {
	return s.db.Close()
}

// ScanNew queries flights and hotels created since the last watermark,
// advancing the watermark to the newest row seen in this scan.
func (s *SQLListingsSource) ScanNew(ctx context.Context) ([]Listing, error) {
	var out []Listing

	flights, newest, err := s.scanFlights(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, flights...)
	if newest.After(s.lastFlightAt) {
		s.lastFlightAt = newest
	}

	hotels, newest, err := s.scanHotels(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, hotels...)
	if newest.After(s.lastHotelAt) {
		s.lastHotelAt = newest
	}

	return out, nil
}

func (s *SQLListingsSource) scanFlights(ctx context.Context) ([]Listing, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flight_code, airline, departure_airport, arrival_airport,
		       departure_time, arrival_time, price, base_price, seats_left,
		       cabin_class, baggage_included, created_at
		FROM flights
		WHERE created_at > $1
		ORDER BY created_at
		LIMIT $2`, s.lastFlightAt, s.batchLimit)
	if err != nil {
		return nil, s.lastFlightAt, err
	}
	defer rows.Close()

	newest := s.lastFlightAt
	var out []Listing
	for rows.Next() {
		var (
			id, flightCode, airline, origin, destination, cabin string
			departure, arrival                                  sql.NullTime
			price, basePrice                                    float64
			seatsLeft                                           int
			baggageIncluded                                     bool
			createdAt                                           time.Time
		)
		if err := rows.Scan(&id, &flightCode, &airline, &origin, &destination,
			&departure, &arrival, &price, &basePrice, &seatsLeft,
			&cabin, &baggageIncluded, &createdAt); err != nil {
			continue
		}
		if createdAt.After(newest) {
			newest = createdAt
		}
		out = append(out, Listing{
			FeedType: "flight",
			Data: map[string]interface{}{
				"id":               id,
				"flight_code":      flightCode,
				"route_id":         flightCode,
				"origin":           origin,
				"destination":      destination,
				"airline":          airline,
				"departure":        formatNullTime(departure),
				"arrival":          formatNullTime(arrival),
				"price":            price,
				"base_price":       basePrice,
				"seats_left":       seatsLeft,
				"cabin_class":      cabin,
				"baggage_included": baggageIncluded,
			},
		})
	}
	return out, newest, rows.Err()
}

func (s *SQLListingsSource) scanHotels(ctx context.Context) ([]Listing, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, city, state, address, rating, price_per_night,
		       rooms_available, amenities, created_at
		FROM hotels
		WHERE created_at > $1
		ORDER BY created_at
		LIMIT $2`, s.lastHotelAt, s.batchLimit)
	if err != nil {
		return nil, s.lastHotelAt, err
	}
	defer rows.Close()

	newest := s.lastHotelAt
	var out []Listing
	for rows.Next() {
		var (
			id, name, city, state, address, amenitiesRaw string
			rating, pricePerNight                        float64
			roomsAvailable                               int
			createdAt                                    time.Time
		)
		if err := rows.Scan(&id, &name, &city, &state, &address, &rating,
			&pricePerNight, &roomsAvailable, &amenitiesRaw, &createdAt); err != nil {
			continue
		}
		if createdAt.After(newest) {
			newest = createdAt
		}
		out = append(out, Listing{
			FeedType: "hotel",
			Data: map[string]interface{}{
				"id":              id,
				"hotel_id":        id,
				"name":            name,
				"city":            city,
				"state":           state,
				"address":         address,
				"rating":          rating,
				"price_per_night": pricePerNight,
				"rooms_available": roomsAvailable,
				"amenities":       decodeAmenities(amenitiesRaw),
			},
		})
	}
	return out, newest, rows.Err()
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

func decodeAmenities(raw string) interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			out := make([]interface{}, len(list))
			for i, s := range list {
				out[i] = s
			}
			return out
		}
	}
	return raw
}
