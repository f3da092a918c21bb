package common

// GetAccountFromArgs extracts the account name from request arguments,
// defaulting to "default" when none is given. Every tool that touches a
// Google account accepts the same optional "account" argument, so token
// storage and session lookup key on the same name.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return "default"
}
