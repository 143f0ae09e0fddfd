package supply

// DefaultLowSupplyThreshold is the remaining count at which the refill
// warning fires.
const DefaultLowSupplyThreshold = 5

type Config struct {
	LowSupplyThreshold int
}

func DefaultConfig() Config {
	return Config{LowSupplyThreshold: DefaultLowSupplyThreshold}
}
