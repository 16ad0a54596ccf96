package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/version"
)

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.db.PingContext(c.UserContext()); err != nil {
		s.log.Logf("[ERROR] database ping failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "unavailable", Version: version.Short()})
	}
	return c.JSON(HealthResponse{Status: "ok", Version: version.Short()})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.users.Register(c.UserContext(), app.UserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		return err
	}
	return s.issueToken(c, fiber.StatusCreated, user)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return s.issueToken(c, fiber.StatusOK, user)
}

func (s *Server) issueToken(c *fiber.Ctx, status int, user *model.User) error {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      newUserResponse(user),
	})
}

func (s *Server) me(c *fiber.Ctx) error {
	actor := actorFrom(c)
	user, err := s.users.Get(c.UserContext(), actor, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	tasks, err := s.tasks.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(newTaskListResponse(tasks))
}

func (s *Server) listUserTasks(c *fiber.Ctx) error {
	tasks, err := s.tasks.ListByAssignee(c.UserContext(), actorFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(newTaskListResponse(tasks))
}

func (s *Server) taskStats(c *fiber.Ctx) error {
	stats, err := s.tasks.Stats(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) getTask(c *fiber.Ctx) error {
	task, err := s.tasks.Get(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newTaskResponse(task))
}

func (s *Server) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	task, err := s.tasks.Create(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newTaskResponse(task))
}

func (s *Server) updateTask(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	task, err := s.tasks.Update(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(newTaskResponse(task))
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	if err := s.tasks.Delete(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "Task deleted"})
}

func (s *Server) receiveTask(c *fiber.Ctx) error {
	return s.transition(c, model.TaskActionReceive)
}

func (s *Server) completeTask(c *fiber.Ctx) error {
	return s.transition(c, model.TaskActionComplete)
}

func (s *Server) transition(c *fiber.Ctx, action model.TaskAction) error {
	task, err := s.tasks.Transition(c.UserContext(), actorFrom(c), c.Params("id"), action)
	if err != nil {
		return err
	}
	return c.JSON(newTaskResponse(task))
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	users, err := s.users.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	return c.JSON(resp)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	user, err := s.users.Get(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

func (s *Server) createUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	user, err := s.users.Create(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newUserResponse(user))
}

func (s *Server) updateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	upd, err := req.toUpdate()
	if err != nil {
		return err
	}

	user, err := s.users.Update(c.UserContext(), actorFrom(c), c.Params("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(newUserResponse(user))
}

func (s *Server) deleteUser(c *fiber.Ctx) error {
	if err := s.users.Delete(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "User deleted"})
}
