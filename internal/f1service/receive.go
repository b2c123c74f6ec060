package f1service

import (
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"intelliserver/internal/f1codec"
)

// pollInterval bounds how long a single ReadFrom call blocks, so the loop
// can observe stop requests and service its batch tick even when no
// datagram arrives.
const pollInterval = 500 * time.Millisecond

// maxConsecutiveSocketErrors is the retry budget for transient receive
// errors before the service gives up and terminates.
const maxConsecutiveSocketErrors = 3

func (s *Service) runReceiveLoop() {
	buf := make([]byte, receiveBufferSize)
	ticker := time.NewTicker(BatchTick)
	defer ticker.Stop()

	consecutiveErrors := 0

	for {
		select {
		case <-s.stopCh:
			s.terminate("stopped")
			return
		default:
		}

		if s.idleTimedOut() {
			s.terminate("idle timeout")
			return
		}

		s.conn.SetReadDeadline(s.now().Add(pollInterval))
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				consecutiveErrors = 0
				s.maybeDrainAndPublish(ticker)
				continue
			}
			select {
			case <-s.stopCh:
				s.terminate("stopped")
				return
			default:
			}
			consecutiveErrors++
			log.Warn().Err(err).Int("attempt", consecutiveErrors).Msg("f1 service socket read error")
			if consecutiveErrors >= maxConsecutiveSocketErrors {
				s.terminate("persistent socket error")
				return
			}
			time.Sleep(300 * time.Millisecond)
			continue
		}

		s.lastActivity.Store(s.now().UnixNano())
		s.handleDatagram(buf[:n])
		s.maybeDrainAndPublish(ticker)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (s *Service) idleTimedOut() bool {
	last := time.Unix(0, s.lastActivity.Load())
	return s.now().Sub(last) > SocketTimeout
}

func (s *Service) handleDatagram(datagram []byte) {
	pkt, ok, err := f1codec.Decode(datagram)
	if err != nil {
		s.decodeErrors.Add(1)
		return
	}
	if !ok {
		s.decodeErrors.Add(1)
		return
	}
	if pkt.Body == nil {
		return
	}

	s.cache.Save(pkt.Header.PacketID, pkt.Body)

	switch body := pkt.Body.(type) {
	case f1codec.Participants:
		for i := uint8(0); i < body.NumActiveCars && int(i) < f1codec.MaxCars; i++ {
			name := body.Cars[i].SteamName()
			if name == "" {
				continue
			}
			s.enqueueWork(workItem{steamName: name, nationality: body.Cars[i].Nationality})
		}
	case f1codec.FinalClassification:
		fc := body
		s.enqueueWork(workItem{fc: &fc})
	}
}

// enqueueWork performs a non-blocking send; if the work queue is full the
// oldest pending item is dropped to make room, and the loss is counted.
func (s *Service) enqueueWork(item workItem) {
	select {
	case s.work <- item:
		return
	default:
	}
	select {
	case <-s.work:
		s.droppedWork.Add(1)
	default:
	}
	select {
	case s.work <- item:
	default:
		s.droppedWork.Add(1)
	}
}

func (s *Service) maybeDrainAndPublish(ticker *time.Ticker) {
	select {
	case <-ticker.C:
	default:
		return
	}
	if frame := s.cache.DrainDelta(); frame != nil {
		s.hub.Publish(frame)
	}
}
