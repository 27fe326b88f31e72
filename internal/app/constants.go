package app

// MinPlayersToStartRound is the minimum number of occupied seats required
// to start a round. Keep this centralized so tests or local runs can
// adjust the rule without touching multiple call sites.
const MinPlayersToStartRound = 2

// MaxPlayersPerTable bounds a table at one full deal of 13 cards each.
const MaxPlayersPerTable = 4
