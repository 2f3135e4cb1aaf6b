package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Shipment is a seed row for tests and demos.
type Shipment struct {
	Reference     string
	Description   string
	TotalCost     float64
	WeightLbs     float64
	DistanceMiles float64
	Status        string
	TransportMode string
	Expedited     bool
	Carrier       string
	CarrierSCAC   string
	OriginCity    string
	OriginState   string
	DestCity      string
	DestState     string
}

// Seed inserts shipment rows along with their carrier and address rows.
// Carriers are de-duplicated by name.
func (s *Store) Seed(ctx context.Context, shipments ...Shipment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	carrierIDs := make(map[string]int64)

	for i, sh := range shipments {
		var carrierID any
		if sh.Carrier != "" {
			id, ok := carrierIDs[sh.Carrier]
			if !ok {
				res, err := tx.ExecContext(ctx,
					"INSERT INTO carriers (name, scac) VALUES (?, ?)", sh.Carrier, sh.CarrierSCAC)
				if err != nil {
					return fmt.Errorf("seed carrier %q: %w", sh.Carrier, err)
				}
				id, _ = res.LastInsertId()
				carrierIDs[sh.Carrier] = id
			}
			carrierID = id
		}

		originID, err := insertAddress(ctx, tx, sh.OriginCity, sh.OriginState)
		if err != nil {
			return fmt.Errorf("seed shipment %d origin: %w", i, err)
		}
		destID, err := insertAddress(ctx, tx, sh.DestCity, sh.DestState)
		if err != nil {
			return fmt.Errorf("seed shipment %d destination: %w", i, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO shipments
				(reference, description, total_cost, weight_lbs, distance_miles,
				 status, transport_mode, expedited, carrier_id,
				 origin_address_id, destination_address_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sh.Reference, sh.Description, sh.TotalCost, sh.WeightLbs, sh.DistanceMiles,
			sh.Status, sh.TransportMode, sh.Expedited, carrierID, originID, destID)
		if err != nil {
			return fmt.Errorf("seed shipment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func insertAddress(ctx context.Context, tx *sql.Tx, city, state string) (any, error) {
	if city == "" && state == "" {
		return nil, nil
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO addresses (city, state) VALUES (?, ?)", city, state)
	if err != nil {
		return nil, err
	}
	return res.LastInsertId()
}
