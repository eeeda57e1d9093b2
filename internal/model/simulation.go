package model

type SimType string

const (
	SimOptimistic  SimType = "optimistic"
	SimPessimistic SimType = "pessimistic"
	SimMonteCarlo  SimType = "montecarlo"
)

type ContributionMode string

const (
	ContributionFixed   ContributionMode = "fixed"
	ContributionGrowing ContributionMode = "growing"
)

type SimulationInput struct {
	PortfolioIDs        []string
	Years               int
	InitialCapital      float64
	MonthlyContribution float64
	ContributionMode    ContributionMode
	GrowthRate          float64 // yearly % growth of the contribution in growing mode
	ApplyTax            bool
	SimType             SimType
}

type SimulationPoint struct {
	Year  float64
	Value float64
}

type SimulationResult struct {
	PortfolioID   string
	PortfolioName string
	Data          []SimulationPoint
	FinalGross    float64
	FinalNet      float64
	TotalInvested float64
	TaxPaid       float64
	Gain          float64
}
