package bot

import "tienlen/internal/domain"

// Agent represents an autonomous seat-filling player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent to calculate its move based on the current game
// state. An agent not seated at the table passes.
func (a *Agent) Play(game *domain.Game) (Move, error) {
	var player *domain.Player
	for _, p := range game.Players {
		if p.ID == a.ID {
			player = p
			break
		}
	}
	if player == nil {
		return Move{Pass: true}, nil
	}

	move, err := a.Strategy.CalculateMove(game, player)
	if err != nil {
		return Move{Pass: true}, err
	}
	return move, nil
}
