package ledger

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, id string, amount int64) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		wallet, exists := mem.wallets[id]
		if !exists {
			return
		}
		wallet.Balance = amount
		mem.wallets[id] = wallet
	}
}
