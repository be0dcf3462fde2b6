package types

// Client → server events.
const (
	EventCreateRoom       EventType = "create_room"
	EventGetMyRoom        EventType = "get_my_room"
	EventForceCloseRoom   EventType = "force_close_room"
	EventJoinRoom         EventType = "join_room"
	EventJoinAsSpectator  EventType = "join_as_spectator"
	EventLeaveRoom        EventType = "leave_room"
	EventLeaveSpectator   EventType = "leave_spectator"
	EventCloseRoom        EventType = "close_room"
	EventReconnectHost    EventType = "reconnect_host"
	EventReconnectPlayer  EventType = "reconnect_player"
	EventReconnectSpec    EventType = "reconnect_spectator"
	EventStartGame        EventType = "start_game"
	EventStartAnswering   EventType = "start_answering"
	EventEndAnswering     EventType = "end_answering"
	EventShowLeaderboard  EventType = "show_leaderboard"
	EventNextQuestion     EventType = "next_question"
	EventSubmitAnswer     EventType = "submit_answer"
	EventKickPlayer       EventType = "kick_player"
	EventBanPlayer        EventType = "ban_player"
	EventUnbanNickname    EventType = "unban_nickname"
	EventGetPlayers       EventType = "get_players"
	EventGetSpectators    EventType = "get_spectators"
	EventGetBanned        EventType = "get_banned_nicknames"
	EventPauseGame        EventType = "pause_game"
	EventResumeGame       EventType = "resume_game"
	EventRequestTimerSync EventType = "request_timer_sync"
	EventGetResults       EventType = "get_results"
)

// Server → client events.
const (
	EventRoomCreated        EventType = "room_created"
	EventMyRoom             EventType = "my_room"
	EventRoomJoined         EventType = "room_joined"
	EventRoomJoinedSpec     EventType = "room_joined_spectator"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerKicked       EventType = "player_kicked"
	EventPlayerBanned       EventType = "player_banned"
	EventYouWereKicked      EventType = "you_were_kicked"
	EventPlayerReturned     EventType = "player_returned"
	EventSpectatorJoined    EventType = "spectator_joined"
	EventSpectatorLeft      EventType = "spectator_left"
	EventSpectatorReturned  EventType = "spectator_returned"
	EventPlayersList        EventType = "players_list"
	EventSpectatorsList     EventType = "spectators_list"
	EventBannedNicknames    EventType = "banned_nicknames"
	EventNicknameUnbanned   EventType = "nickname_unbanned"
	EventGameStarted        EventType = "game_started"
	EventQuestionIntro      EventType = "question_intro"
	EventAnsweringStarted   EventType = "answering_started"
	EventAnswerReceived     EventType = "answer_received"
	EventAnswerCount        EventType = "answer_count_updated"
	EventAllAnswered        EventType = "all_players_answered"
	EventShowResults        EventType = "show_results"
	EventRoundEnded         EventType = "round_ended"
	EventLeaderboard        EventType = "leaderboard"
	EventGameOver           EventType = "game_over"
	EventFinalResults       EventType = "final_results"
	EventResults            EventType = "results"
	EventTimerStarted       EventType = "timer_started"
	EventTimerTick          EventType = "timer_tick"
	EventTimeExpired        EventType = "time_expired"
	EventTimerSync          EventType = "timer_sync"
	EventGamePaused         EventType = "game_paused"
	EventGameResumed        EventType = "game_resumed"
	EventRoomClosed         EventType = "room_closed"
	EventHostDisconnected   EventType = "host_disconnected"
	EventHostDisconnectWarn EventType = "host_disconnected_warning"
	EventHostReturned       EventType = "host_returned"
	EventHostReconnected    EventType = "host_reconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventSpectatorReconn    EventType = "spectator_reconnected"
	EventError              EventType = "error"
)
