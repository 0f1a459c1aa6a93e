package client

import (
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	pb "github.com/dmitrijs2005/kinlink/internal/proto"
)

func profileFromWire(p *pb.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	out := &models.Profile{
		ID:          p.ID,
		ShareCode:   p.ShareCode,
		LegacyID:    p.LegacyID,
		DisplayName: p.DisplayName,
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		out.DeletedAt = &t
	}
	if p.Enrichment != nil {
		out.Enrichment = &models.Enrichment{
			PhotoURL:  p.Enrichment.PhotoURL,
			Biography: p.Enrichment.Biography,
			Version:   p.Enrichment.Version,
		}
	}
	return out
}

func profilesFromWire(ps []*pb.Profile) []*models.Profile {
	out := make([]*models.Profile, 0, len(ps))
	for _, p := range ps {
		if m := profileFromWire(p); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func shareEventToWire(ev *models.ShareEvent) *pb.ShareEvent {
	return &pb.ShareEvent{
		ID:                ev.ID,
		TargetProfileID:   ev.TargetProfileID,
		TargetShareCode:   ev.TargetShareCode,
		ReferrerProfileID: ev.ReferrerProfileID,
		ScannerProfileID:  ev.ScannerProfileID,
		Method:            string(ev.Method),
		OccurredAt:        ev.OccurredAt,
	}
}
