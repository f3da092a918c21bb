// Package google provides OAuth2 authentication and token management for the
// Google Calendar API.
//
// Client credentials come from the environment at startup (see Configure);
// the authorized user token is stored on disk per account, under the user
// cache directory. Several accounts can be authorized side by side, each
// with its own token file.
package google
