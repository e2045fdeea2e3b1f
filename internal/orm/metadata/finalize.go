package metadata

import (
	"go.uber.org/zap"
)

// FinalizeModel runs the finalizing conventions, validates the model and makes
// it read-only. A model that fails validation stays mutable so the caller can
// fix the configuration and try again.
func (b *InternalModelBuilder) FinalizeModel() (*Model, error) {
	m := b.model
	if m.finalized {
		return m, nil
	}

	m.dispatcher.scope(func() {
		m.dispatcher.enqueue(modelFinalizingEvent{model: m})
	})
	if m.deferredErr != nil {
		return nil, m.deferredErr
	}

	report := &ValidationReport{}
	CoreValidator{}.Validate(m, report)
	if m.conventions != nil {
		for _, v := range m.conventions.Validators {
			v.Validate(m, report)
		}
	}

	for _, w := range report.warnings {
		m.logger.Warn("model validation warning", zap.String("warning", w))
	}
	m.warnings = append(m.warnings[:0], report.warnings...)

	if err := report.Err(); err != nil {
		m.logger.Error("model validation failed",
			zap.String("model_id", m.id.String()),
			zap.Int("errors", len(report.errors)))
		return nil, err
	}

	m.finalized = true
	m.logger.Info("model finalized",
		zap.String("model_id", m.id.String()),
		zap.Int("entity_types", len(m.entityTypes)),
		zap.Int("warnings", len(m.warnings)))
	return m, nil
}

type modelFinalizingEvent struct{ model *Model }

func (e modelFinalizingEvent) live() bool     { return true }
func (e modelFinalizingEvent) String() string { return "ModelFinalizing" }
func (e modelFinalizingEvent) dispatch(set *ConventionSet) {
	for _, c := range set.ModelFinalizing {
		c.ProcessModelFinalizing(e.model.builder)
	}
}
