package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных консоли в Redis
	RedisNamespace = "console"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanEntitiesChanged - сигнал "коллекция изменена", payload "<instance>:<kind>"
	RedisChanEntitiesChanged = RedisNamespace + ":entities:changed"
)

// ChangeChannel позволяет развести несколько консолей в одном Redis по namespace
func ChangeChannel(namespace string) string {
	if namespace == "" || namespace == RedisNamespace {
		return RedisChanEntitiesChanged
	}
	return fmt.Sprintf("%s:entities:changed", namespace)
}
