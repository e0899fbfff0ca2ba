package views

import (
	"comet/internal/models"
	"comet/internal/services"
)

type Planet struct {
	*models.Planet
	MemberCount int64     `json:"member_count"`
	Moderators  []*Author `json:"moderators"`
	Joined      bool      `json:"joined"`
	Muted       bool      `json:"muted"`
	Banned      bool      `json:"banned"`
	IsModerator bool      `json:"is_moderator"`
}

func NewPlanet(d *services.PlanetDetails) *Planet {
	return &Planet{
		Planet:      d.Planet,
		MemberCount: d.MemberCount,
		Moderators:  Authors(d.Moderators),
		Joined:      d.Joined,
		Muted:       d.Muted,
		Banned:      d.Banned,
		IsModerator: d.IsModerator,
	}
}
