package board

import "time"

var titleAdjectives = []string{
	"Cosmic", "Velvet", "Neon", "Quiet", "Paper", "Wild", "Lazy", "Hidden", "Silent", "Rapid",
	"Misty", "Golden", "Silver", "Electric", "Secret", "Hollow", "Living", "Dancing", "Flying",
}

var titleNouns = []string{
	"Sketch", "Canvas", "Thoughts", "Storm", "Dreams", "Ink", "River", "Forest", "Mountain", "Sky",
	"Ocean", "Spark", "Flame", "Shadow", "Light", "Echo", "Galaxy", "Star", "Moon",
}

// GenerateRoomTitle produces a default title for rooms created without
// one. Selection only has to look varied, not be uniform.
func GenerateRoomTitle() string {
	nano := time.Now().UnixNano()
	adj := titleAdjectives[int(nano)%len(titleAdjectives)]
	noun := titleNouns[int(nano/2)%len(titleNouns)]
	return adj + " " + noun
}
