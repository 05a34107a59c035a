// Package chat contains the Twitch IRC client adapter and the command dispatcher.
//
// It provides two pieces:
//   - Client: wraps the IRC transport. Outbound messages are chunked at the
//     protocol's effective size limit and sent with a short stagger. Inbound
//     events (messages, subs, resubs, cheers) arrive as callbacks; sub and
//     cheer events are answered with fixed greetings.
//   - Dispatcher: inspects each incoming message exactly once, first match
//     wins: explicit ! commands, then bot-name triggers, then the tracked-user
//     passive reaction, then the generic configured prefix. LLM-backed
//     actions share one global cooldown measured from the last response sent;
//     the slot machine and the passive reaction carry per-username windows.
//
// Credentials: the IRC client needs a bot username and a user OAuth token
// with chat:read/chat:edit scopes (TWITCH_USER, TWITCH_AUTH).
package chat
