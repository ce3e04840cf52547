package config

type StorageDriver string

const (
	StorageMySQL  StorageDriver = "mysql"
	StorageBadger StorageDriver = "badger"
)

type EventDriver string

const (
	EventsNone   EventDriver = "none"
	EventsPusher EventDriver = "pusher"
	EventsWS     EventDriver = "ws"
)
