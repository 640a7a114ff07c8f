package web

const (
	Health        = "/health"
	Metrics       = "/metrics"
	GenerateIdeas = "/api/ideas/generate"
	Relations     = "/api/relations"
	Occasions     = "/api/occasions"
)
