package model

// Service is one line of the public service catalogue.  Booking forms send
// the IDs back in their services list.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is the list of services offered on the booking form.
var Catalog = []Service{
	{ID: "sound", Name: "Sound reinforcement", Description: "PA systems, mixing desks, microphones and an engineer."},
	{ID: "lighting", Name: "Stage lighting", Description: "Wash, spot and effect fixtures with a programmed show."},
	{ID: "video", Name: "Video and projection", Description: "LED walls, projectors, screens and switching."},
	{ID: "staging", Name: "Staging and rigging", Description: "Modular stages, truss, drapes and certified rigging."},
	{ID: "streaming", Name: "Live streaming", Description: "Multi-camera capture and streaming to any platform."},
	{ID: "power", Name: "Power distribution", Description: "Generators and distribution for outdoor venues."},
	{ID: "crew", Name: "Technical crew", Description: "Technicians and a production manager for the day."},
}
