package config

// LevelID identifies a playable level.
type LevelID string

// Level describes one entry of the campaign.
type Level struct {
	ID             LevelID
	Name           string
	BaseDifficulty float64
	BossName       string
	Intro          []string
	Fact           string
}

// Levels is the campaign in unlock order. The first entry is always unlocked.
var Levels = []Level{
	{
		ID:             "mercury",
		Name:           "Mercury",
		BaseDifficulty: 1.0,
		BossName:       "Solar Warden",
		Intro: []string{
			"Mission control: Commander, you're about to enter Mercury's orbit.",
			"Collect meteorite fragments to upgrade your ship between missions.",
			"Survive the meteor showers and defeat the boss when it arrives.",
			"Good luck, Commander!",
		},
		Fact: "A year on Mercury lasts just 88 Earth days.",
	},
	{
		ID:             "venus",
		Name:           "Venus",
		BaseDifficulty: 1.3,
		BossName:       "Acid Tempest",
		Intro: []string{
			"Venus ahead. The clouds hide more than sulfuric acid.",
			"Comets streak through this sector. Grab them for a boost.",
		},
		Fact: "Venus spins backwards compared to most planets.",
	},
	{
		ID:             "earth",
		Name:           "Earth",
		BaseDifficulty: 1.6,
		BossName:       "Orbital Sentinel",
		Intro: []string{
			"Home orbit is overrun. Formations have been spotted.",
			"Break their lines before they settle in.",
		},
		Fact: "Earth is the densest planet in the Solar System.",
	},
	{
		ID:             "mars",
		Name:           "Mars",
		BaseDifficulty: 2.0,
		BossName:       "Red Colossus",
		Intro: []string{
			"Mars. Dust storms and a lot of angry rock.",
			"Stay mobile, Commander.",
		},
		Fact: "Olympus Mons on Mars is the tallest volcano known.",
	},
	{
		ID:             "jupiter",
		Name:           "Jupiter",
		BaseDifficulty: 2.5,
		BossName:       "Storm Sovereign",
		Intro: []string{
			"Jupiter's gravity well pulls everything in. Including them.",
			"This is the last line. Make it count.",
		},
		Fact: "Jupiter's Great Red Spot is a storm larger than Earth.",
	},
}

// FirstLevel is the level unlocked for a fresh profile.
const FirstLevel LevelID = "mercury"

// LevelByID returns the level with the given ID.
func LevelByID(id LevelID) (Level, bool) {
	for _, l := range Levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// NextLevel returns the level after id in campaign order.
func NextLevel(id LevelID) (Level, bool) {
	for i, l := range Levels {
		if l.ID == id && i+1 < len(Levels) {
			return Levels[i+1], true
		}
	}
	return Level{}, false
}
