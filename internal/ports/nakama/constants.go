package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcCreateInvite mints a signed invite token for the caller's current match.
	RpcCreateInvite = "create_invite"

	// RpcRedeemInvite resolves an invite token back to a match id.
	RpcRedeemInvite = "redeem_invite"

	// MatchNameTienLen is the authoritative match handler name registered with Nakama.
	MatchNameTienLen = "tienlen_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartRound         int64 = 1
	OpPlayCards          int64 = 2
	OpPassTurn           int64 = 3
	OpSetBet             int64 = 4
	OpDeclineSpecialTurn int64 = 5
	OpRequestState       int64 = 6

	// Server -> Client events
	OpPlayerJoined int64 = 101
	OpPlayerLeft   int64 = 102
	OpRoundStarted int64 = 103
	OpHandDealt    int64 = 104 // send privately
	OpMovePlayed   int64 = 105
	OpTurnPassed   int64 = 106
	OpRoundEnded   int64 = 107
	OpBetChanged   int64 = 108
	OpChop         int64 = 109
	OpSpecialTurn  int64 = 110 // send privately
	OpTrickReset   int64 = 111
	OpInstantWin   int64 = 112
	OpState        int64 = 113 // send privately
	OpGameError    int64 = 120
)
