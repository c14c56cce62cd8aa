package services_test

import (
	"memedrop/internal/models"
	"memedrop/internal/services"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Authentication", func() {
	var authentication *services.Authentication

	BeforeEach(func() {
		var err error
		authentication, err = services.NewAuthentication("test-secret")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should round-trip a user through a signed token", func() {
		user := &models.User{ID: "user-1", Username: "alice"}

		token, err := authentication.CreateToken(user)
		Expect(err).NotTo(HaveOccurred())

		auth, err := authentication.Validate(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.ID).To(Equal("user-1"))
		Expect(auth.Username).To(Equal("alice"))
	})

	It("should reject a token signed with another secret", func() {
		other, err := services.NewAuthentication("other-secret")
		Expect(err).NotTo(HaveOccurred())

		token, err := other.CreateToken(&models.User{ID: "user-1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = authentication.Validate(token)
		Expect(err).To(HaveOccurred())
	})

	It("should reject garbage", func() {
		_, err := authentication.Validate("not-a-token")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("VerifyOwnership", func() {
	It("should accept the resource owner", func() {
		user := &models.User{ID: "user-1"}
		Expect(services.VerifyOwnership(user, "user-1")).To(Succeed())
	})

	It("should reject another user", func() {
		user := &models.User{ID: "user-1"}
		Expect(services.VerifyOwnership(user, "user-2")).To(HaveOccurred())
	})

	It("should reject a missing session", func() {
		Expect(services.VerifyOwnership(nil, "user-1")).To(HaveOccurred())
	})
})
