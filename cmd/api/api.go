package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/booking"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/classroom"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/course"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/dashboard"
	notification "github.com/hainguyenvie/aitheduconnect-sub001/service/notifications"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/payment"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/review"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/schedule"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/teacher"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/transactions"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/user"
	"github.com/hainguyenvie/aitheduconnect-sub001/service/ws"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	teacherHandler := teacher.NewTeacherHandler(s.db)
	teacherHandler.RegisterRoutes(subrouter)

	scheduleHandler := schedule.NewScheduleHandler(s.db)
	scheduleHandler.RegisterRoutes(subrouter)

	courseHandler := course.NewCourseHandler(s.db)
	courseHandler.RegisterRoutes(subrouter)

	bookingHandler := booking.NewBookingHandler(s.db)
	bookingHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewPaymentHandler(s.db)
	paymentHandler.RegisterRoutes(subrouter)

	reviewHandler := review.NewReviewHandler(s.db)
	reviewHandler.RegisterRoutes(subrouter)

	classroomHandler := classroom.NewClassroomHandler(s.db)
	classroomHandler.RegisterRoutes(subrouter)

	transactionHandler := transactions.NewTransactionHandler(s.db)
	transactionHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	chatHandler := ws.NewChatHandler(s.db)
	chatHandler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Gateway-Signature"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
