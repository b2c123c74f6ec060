package f1service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// runWorker consumes side-effect items off the bounded work channel until
// it is closed by terminate, performing the I/O-bound persistence calls
// the receive loop must never make synchronously. Failures are logged and
// never propagate back to the service.
func (s *Service) runWorker() {
	defer close(s.workerDrained)

	ctx := context.Background()
	for item := range s.work {
		switch {
		case item.fc != nil:
			if s.raceResults == nil {
				continue
			}
			if err := s.raceResults.PersistRaceResult(ctx, s.championshipID, *item.fc); err != nil {
				log.Error().Err(err).Int32("championship_id", s.championshipID).Msg("persist race result failed")
			}
		case item.steamName != "":
			if s.drivers == nil {
				continue
			}
			if err := s.drivers.Upsert(ctx, item.steamName, item.nationality); err != nil {
				log.Error().Err(err).Str("steam_name", item.steamName).Msg("upsert driver failed")
			}
		}
	}
}
