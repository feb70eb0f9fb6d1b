package models

// Show represents a TV show tracked by the API
type Show struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	EpisodesSeen int    `json:"episodes_seen"`
}

// FilterByMinEpisodes returns the shows with at least minEpisodes episodes seen, keeping their order.
// The result is never nil so it always serializes as a JSON array.
func FilterByMinEpisodes(shows []Show, minEpisodes int) []Show {
	filtered := make([]Show, 0, len(shows))
	for _, show := range shows {
		if show.EpisodesSeen >= minEpisodes {
			filtered = append(filtered, show)
		}
	}
	return filtered
}
