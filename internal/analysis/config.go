package analysis

import "github.com/kiranshivaraju/autotriage/internal/config"

// ParamsFromConfig returns the default run parameters from cfg.
func ParamsFromConfig(cfg config.AnalysisConfig) Params {
	return Params{NClusters: cfg.NClusters, Alpha: cfg.Alpha, Cap: cfg.Cap}
}

// KMeansFromConfig returns the clustering settings from cfg.
func KMeansFromConfig(cfg config.AnalysisConfig) KMeans {
	km := DefaultKMeans(cfg.NClusters)
	km.Seed = cfg.Seed
	km.Restarts = cfg.Restarts
	km.MaxIterations = cfg.MaxIterations
	return km
}
