package common

const (
	ComponentDriver    = "driver"
	ComponentApplier   = "applier"
	ComponentMediaWiki = "mediawiki"
	ComponentCorpus    = "corpus"
	ComponentLedger    = "ledger"
	ComponentPipeline  = "pipeline"
	ComponentCLI       = "cli"
)

var AllComponents = map[string]struct{}{
	ComponentDriver:    {},
	ComponentApplier:   {},
	ComponentMediaWiki: {},
	ComponentCorpus:    {},
	ComponentLedger:    {},
	ComponentPipeline:  {},
	ComponentCLI:       {},
}
