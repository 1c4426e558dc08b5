package sensitivity_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSensitivity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sensitivity Suite")
}
