package redis

import (
	"fmt"

	"github.com/mcoot/triviagame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "trivia"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// categoriesKey returns the Redis key for the HASH of category id -> category
func categoriesKey() string {
	return fmt.Sprintf("%s:categories", keyPrefix)
}

// gameKey returns the Redis key for a GameDetail document
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// playerGamesIndexKey returns the Redis key for the SET of games a player participates in
func playerGamesIndexKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_games:%s", keyPrefix, playerID)
}

// liveGamesIndexKey returns the Redis key for the ZSET of in-progress games scored by start time
func liveGamesIndexKey() string {
	return fmt.Sprintf("%s:idx:live_games", keyPrefix)
}
