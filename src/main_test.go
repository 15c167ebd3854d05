package main

import (
	"crms/src/db"
	"crms/src/models"
	"crms/src/types"
	"crms/src/utils"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB            *gorm.DB
	StaffToken    *string
	CustomerToken *string
	CustomerID    uint
}

var dbi *gorm.DB

// authMiddleware mirrors middlewares.AuthMiddleware but reads the signing
// key at call time so the suite can set JWT_SECRET during setup.
func authMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	if reqToken == "" {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var user models.User
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		log.Println("error parsing claims:", err.Error())
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if err := dbi.
		Model(&models.User{}).
		Where(&models.User{ID: uint(uid)}).
		First(&user).
		Error; err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ctx.Set("email", user.Email)
	ctx.Set("id", user.ID)
	ctx.Set("role", string(user.Role))
}

func (s *TestSuite) SetupSuite() {
	os.Setenv("JWT_SECRET", "secret")

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("rentaldate", rentalDateValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
		v.RegisterValidation("ltdate", ltfield)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	if err := d.AutoMigrate(
		&models.User{},
		&models.Car{},
		&models.MaintenanceRecord{},
		&models.Driver{},
		&models.DriverAssignment{},
		&models.Booking{},
		&models.Payment{},
		&models.Extension{},
		&models.Refund{},
		&models.TrackerPing{},
		&models.Setting{},
		&models.EventLog{},
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	db.NewDB(d)
	s.DB = d
	dbi = d

	hash, err := utils.HashPassword("password123")
	if err != nil {
		log.Fatalf("Error hashing password: %s\n", err.Error())
	}
	staff := models.User{
		Name:         "Test Staff",
		Email:        "staff@example.com",
		Role:         types.ROLE_STAFF,
		PasswordHash: hash,
	}
	customer := models.User{
		Name:         "Test Customer",
		Email:        "customer@example.com",
		Role:         types.ROLE_CUSTOMER,
		PasswordHash: hash,
	}
	if err := d.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&staff).Error; err != nil {
			return err
		}
		return tx.Create(&customer).Error
	}); err != nil {
		log.Fatalf("Could not create users due to error: %s\n", err.Error())
	}
	s.CustomerID = customer.ID

	staffToken, err := utils.CreateToken(&staff)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	customerToken, err := utils.CreateToken(&customer)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.StaffToken = &staffToken
	s.CustomerToken = &customerToken
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) newRouter() *gin.Engine {
	router := setupRouter()
	publicRoutes(router)
	authorized := router.Group(apiPrefix)
	authorized.Use(authMiddleware)
	meHandlers(authorized)
	bookingHandlers(authorized)
	paymentHandlers(authorized)
	extensionHandlers(authorized)
	carHandlers(authorized)
	driverHandlers(authorized)
	trackingHandlers(authorized)
	return router
}

func (s *TestSuite) request(router *gin.Engine, method, url, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		sbody, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(sbody))
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) seedCar() *models.Car {
	car := models.Car{
		PlateNumber: fmt.Sprintf("XYZ-%s", uuid.NewString()[:8]),
		Slug:        uuid.NewString(),
		Make:        "Toyota",
		Model:       "Innova",
		Year:        2023,
		DailyRate:   decimal.RequireFromString("2500"),
		Status:      types.CAR_AVAILABLE,
	}
	if err := s.DB.Create(&car).Error; err != nil {
		log.Fatalf("Could not create car: %s\n", err.Error())
	}
	return &car
}

func (s *TestSuite) createBooking(router *gin.Engine, carId uint) uint {
	start := time.Now().Add(48 * time.Hour)
	end := start.Add(5 * 24 * time.Hour)
	w := s.request(router, "POST", "/api/v1/bookings", *s.CustomerToken, types.CreateBookingRequestBody{
		CarID:           carId,
		StartDate:       start.Format("2006-01-02"),
		EndDate:         end.Format("2006-01-02"),
		PickupLocation:  "Cebu City Office",
		DropoffLocation: "Mactan Airport",
	})
	assert.Equal(s.T(), http.StatusCreated, w.Code)
	return uint(gjson.Get(w.Body.String(), "id").Uint())
}

func (s *TestSuite) approveBooking(router *gin.Engine, bookingId uint, total string) {
	w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/approve", bookingId), *s.StaffToken, types.ApproveBookingRequestBody{
		TotalAmount: total,
	})
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestAuthRoutes() {
	router := s.newRouter()

	s.Run("Should register a new customer", func() {
		w := s.request(router, "POST", "/api/v1/auth/register", "", types.RegisterUserRequestBody{
			Name:     "New Customer",
			Email:    "new.customer@example.com",
			Password: "password123",
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)
	})

	s.Run("Should log in with valid credentials", func() {
		w := s.request(router, "POST", "/api/v1/auth/login", "", types.LoginRequestBody{
			Email:    "new.customer@example.com",
			Password: "password123",
		})
		assert.Equal(s.T(), http.StatusOK, w.Code)
		token := gjson.Get(w.Body.String(), "token").String()
		assert.NotEmpty(s.T(), token)
	})

	s.Run("Should reject a wrong password", func() {
		w := s.request(router, "POST", "/api/v1/auth/login", "", types.LoginRequestBody{
			Email:    "new.customer@example.com",
			Password: "wrong-password",
		})
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	s.Run("Should reject unauthenticated requests", func() {
		w := s.request(router, "GET", "/api/v1/bookings", "", nil)
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})
}

func (s *TestSuite) TestBookingPaymentFlow() {
	router := s.newRouter()
	car := s.seedCar()
	bookingId := s.createBooking(router, car.ID)
	s.approveBooking(router, bookingId, "10000")

	s.Run("Should leave a balance after a partial payment", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "4000",
			Method: "cash",
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)

		w = s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d/ledger", bookingId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "4000", gjson.Get(sjson, "data.total_paid").String())
		assert.Equal(s.T(), "6000", gjson.Get(sjson, "data.balance").String())
		assert.Equal(s.T(), "unpaid", gjson.Get(sjson, "data.payment_status").String())
	})

	s.Run("Should settle the booking with the remaining balance", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "6000",
			Method: "cash",
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)

		w = s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d/ledger", bookingId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "0", gjson.Get(sjson, "data.balance").String())
		assert.Equal(s.T(), "paid", gjson.Get(sjson, "data.payment_status").String())
	})

	s.Run("Should start the rental on a release payment", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/release", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "500",
			Method: "cash",
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)

		w = s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)
		assert.Equal(s.T(), "in_progress", gjson.Get(w.Body.String(), "data.status").String())
	})
}

func (s *TestSuite) TestPaymentValidation() {
	router := s.newRouter()
	car := s.seedCar()
	bookingId := s.createBooking(router, car.ID)
	s.approveBooking(router, bookingId, "10000")

	s.Run("Should reject a non-positive amount", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "-50",
			Method: "cash",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should require a reference number for gcash", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "1000",
			Method: "gcash",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should reject an unknown method", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "1000",
			Method: "barter",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should 404 on an unknown booking", func() {
		w := s.request(router, "POST", "/api/v1/bookings/999999/payments", *s.StaffToken, types.RecordPaymentRequestBody{
			Amount: "1000",
			Method: "cash",
		})
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})
}

func (s *TestSuite) TestExtensionFlow() {
	router := s.newRouter()
	car := s.seedCar()
	bookingId := s.createBooking(router, car.ID)
	s.approveBooking(router, bookingId, "5000")

	newEnd := time.Now().Add(10 * 24 * time.Hour).Format("2006-01-02")
	var extensionId uint

	s.Run("Should request an extension", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/extensions", bookingId), *s.CustomerToken, types.RequestExtensionRequestBody{
			NewEndDate: newEnd,
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)
		extensionId = uint(gjson.Get(w.Body.String(), "data.id").Uint())
		assert.Greater(s.T(), extensionId, uint(0))
	})

	s.Run("Should reject a second active extension", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/extensions", bookingId), *s.CustomerToken, types.RequestExtensionRequestBody{
			NewEndDate: newEnd,
		})
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})

	s.Run("Should add the fee to the booking total at approval", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/extensions/%d/approve", extensionId), *s.StaffToken, types.ApproveExtensionRequestBody{
			Fee: "2000",
		})
		assert.Equal(s.T(), http.StatusOK, w.Code)

		w = s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)
		sjson := w.Body.String()
		assert.Equal(s.T(), "7000", gjson.Get(sjson, "data.total_amount").String())
		assert.True(s.T(), gjson.Get(sjson, "data.is_extend").Bool())
	})

	s.Run("Should not complete before the fee is paid", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/extensions/%d/complete", extensionId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})

	s.Run("Should move the end date once the fee is settled", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/payments", bookingId), *s.StaffToken, types.RecordPaymentRequestBody{
			Amount:      "2000",
			Method:      "cash",
			ExtensionID: &extensionId,
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)

		w = s.request(router, "POST", fmt.Sprintf("/api/v1/extensions/%d/complete", extensionId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)

		w = s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), *s.StaffToken, nil)
		assert.Equal(s.T(), http.StatusOK, w.Code)
		sjson := w.Body.String()
		assert.True(s.T(), strings.HasPrefix(gjson.Get(sjson, "data.end_date").String(), newEnd))
		assert.True(s.T(), gjson.Get(sjson, "data.is_extended").Bool())
		assert.False(s.T(), gjson.Get(sjson, "data.is_extend").Bool())
	})
}

func (s *TestSuite) TestBookingValidation() {
	router := s.newRouter()
	car := s.seedCar()

	s.Run("Should reject a booking ending before it starts", func() {
		start := time.Now().Add(5 * 24 * time.Hour)
		end := start.Add(-48 * time.Hour)
		w := s.request(router, "POST", "/api/v1/bookings", *s.CustomerToken, types.CreateBookingRequestBody{
			CarID:           car.ID,
			StartDate:       start.Format("2006-01-02"),
			EndDate:         end.Format("2006-01-02"),
			PickupLocation:  "Cebu City Office",
			DropoffLocation: "Mactan Airport",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should reject overlapping bookings for the same car", func() {
		bookingId := s.createBooking(router, car.ID)
		s.approveBooking(router, bookingId, "10000")

		start := time.Now().Add(72 * time.Hour)
		end := start.Add(24 * time.Hour)
		w := s.request(router, "POST", "/api/v1/bookings", *s.CustomerToken, types.CreateBookingRequestBody{
			CarID:           car.ID,
			StartDate:       start.Format("2006-01-02"),
			EndDate:         end.Format("2006-01-02"),
			PickupLocation:  "Cebu City Office",
			DropoffLocation: "Mactan Airport",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func (s *TestSuite) TestTrackingRoutes() {
	router := s.newRouter()
	car := s.seedCar()
	trackerId := uuid.NewString()
	if err := s.DB.Model(&models.Car{}).Where(&models.Car{ID: car.ID}).Update("tracker_id", trackerId).Error; err != nil {
		log.Fatalf("Could not assign tracker: %s\n", err.Error())
	}

	s.Run("Should store a ping for a known tracker", func() {
		w := s.request(router, "POST", "/api/v1/tracking/pings", *s.StaffToken, types.TrackerPingRequestBody{
			TrackerID: trackerId,
			Latitude:  10.3157,
			Longitude: 123.8854,
		})
		assert.Equal(s.T(), http.StatusCreated, w.Code)

		var count int64
		s.DB.Model(&models.TrackerPing{}).Where(&models.TrackerPing{CarID: car.ID}).Count(&count)
		assert.EqualValues(s.T(), 1, count)
	})

	s.Run("Should reject a ping from an unknown tracker", func() {
		w := s.request(router, "POST", "/api/v1/tracking/pings", *s.StaffToken, types.TrackerPingRequestBody{
			TrackerID: "no-such-tracker",
			Latitude:  10.3157,
			Longitude: 123.8854,
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
