package mock_generator

import _ "go.uber.org/mock/mockgen/model"

// adaptors
// // fulltext
//go:generate mockgen -package mocks -destination ../../internal/adaptors/fulltext/index/mocks/writable.go gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index Writable
//go:generate mockgen -package mocks -destination ../../internal/adaptors/fulltext/applier/mocks/enumerator.go gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/applier Enumerator
//go:generate mockgen -package mocks -destination ../../internal/adaptors/fulltext/extractor/mocks/submitter.go gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/extractor Submitter
