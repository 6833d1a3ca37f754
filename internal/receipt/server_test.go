package receipt

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/fairshare/billscan/internal/extract"
)

// multipartUpload builds a multipart body with a file part and optional
// extra form fields.
func multipartUpload(filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		Expect(writer.WriteField(key, value)).To(Succeed())
	}
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return &buf, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		service     *Service
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		service = NewService(db, extractor, storage)
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleListReceipts", func() {
		BeforeEach(func() {
			db.receipts["id1"] = &Receipt{ID: "id1"}
			db.receipts["id2"] = &Receipt{ID: "id2"}
		})

		It("should return all receipts as JSON", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var receipts []*Receipt
			Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
			Expect(receipts).To(HaveLen(2))
		})
	})

	Describe("handleUploadReceipt", func() {
		When("uploading a decodable capture", func() {
			It("should return the processed receipt", func() {
				body, contentType := multipartUpload("dinner.png", testImagePNG(), nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.Items).To(HaveLen(2))
				Expect(receipt.Subtotal.Equal(decimal.NewFromInt(65))).To(BeTrue())
			})
		})

		When("the upload is not an image", func() {
			It("should return bad request with a JSON error", func() {
				body, contentType := multipartUpload("junk.png", []byte("junk"), nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no file is provided", func() {
			It("should return bad request", func() {
				var buf bytes.Buffer
				writer := multipart.NewWriter(&buf)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts", writer.FormDataContentType(), &buf)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleGetReceipt", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["id1"] = &Receipt{ID: "id1"}
			})

			It("should return it", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/id1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.ID).To(Equal("id1"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return not found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/nope")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleGetReceiptFile", func() {
		BeforeEach(func() {
			db.receipts["id1"] = &Receipt{
				ID:          "id1",
				Filename:    "id1_dinner.png",
				ContentType: "image/png",
			}
			storage.files["id1_dinner.png"] = []byte("png bytes")
		})

		It("should return the stored file", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts/id1/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("png bytes"))
		})
	})

	Describe("handleDeleteReceipt", func() {
		BeforeEach(func() {
			db.receipts["id1"] = &Receipt{ID: "id1", Filename: "id1_dinner.png"}
			storage.files["id1_dinner.png"] = []byte("png bytes")
		})

		It("should delete and return no content", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/id1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.receipts).NotTo(HaveKey("id1"))
		})
	})

	Describe("handleSplitReceipt", func() {
		BeforeEach(func() {
			db.receipts["id1"] = &Receipt{
				ID: "id1",
				Items: []extract.ReceiptItem{
					{Name: "Burger", UnitPrice: decimal.NewFromInt(45), Quantity: 1},
					{Name: "Fries", UnitPrice: decimal.NewFromInt(20), Quantity: 1},
				},
				Subtotal: decimal.NewFromInt(65),
			}
		})

		When("the request is valid", func() {
			It("should return the shares", func() {
				payload := `{"assignments": {"alice": [0], "bob": [1]}}`
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id1/split", "application/json", bytes.NewBufferString(payload))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result SplitResult
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Shares).To(HaveLen(2))
				Expect(result.Shares[0].Person).To(Equal("alice"))
				Expect(result.GrandTotal.Equal(decimal.NewFromInt(65))).To(BeTrue())
			})
		})

		When("the body is not JSON", func() {
			It("should return bad request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id1/split", "application/json", bytes.NewBufferString("nope"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the assignments are empty", func() {
			It("should return bad request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/id1/split", "application/json", bytes.NewBufferString(`{"assignments": {}}`))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleLocateRegions", func() {
		It("should return the candidate regions", func() {
			body, contentType := multipartUpload("frame.png", testImagePNG(), nil)
			resp, err := http.Post(ghttpServer.URL()+"/api/scan/regions", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result struct {
				Regions []map[string]float64 `json:"regions"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Regions).To(HaveLen(1))
		})
	})

	Describe("handleScoreRegion", func() {
		When("the region fields are present", func() {
			It("should return the confidence", func() {
				fields := map[string]string{"x": "0.3", "y": "0.1", "w": "0.4", "h": "0.8"}
				body, contentType := multipartUpload("frame.png", testImagePNG(), fields)
				resp, err := http.Post(ghttpServer.URL()+"/api/scan/score", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result struct {
					Confidence float64 `json:"confidence"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Confidence).To(Equal(0.8))
			})
		})

		When("the region fields are missing", func() {
			It("should return bad request", func() {
				body, contentType := multipartUpload("frame.png", testImagePNG(), nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/scan/score", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the region leaves the unit square", func() {
			It("should return bad request", func() {
				fields := map[string]string{"x": "0.8", "y": "0.1", "w": "0.4", "h": "0.8"}
				body, contentType := multipartUpload("frame.png", testImagePNG(), fields)
				resp, err := http.Post(ghttpServer.URL()+"/api/scan/score", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		When("no credentials are sent", func() {
			It("should return unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("billscan"))
			})
		})

		When("the right credentials are sent", func() {
			It("should serve the request", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("user", "pass")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the wrong credentials are sent", func() {
			It("should return unauthorized", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("user", "wrong")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})
